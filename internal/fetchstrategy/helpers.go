package fetchstrategy

import "bytes"

func newReader(body []byte) *bytes.Reader {
	return bytes.NewReader(body)
}
