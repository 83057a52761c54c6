package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sony/gobreaker"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sentryfeed/sentryfeed/internal/resilience/circuitbreaker"
	"github.com/sentryfeed/sentryfeed/internal/resilience/retry"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// Sentinel errors per spec §4.1/§7's error taxonomy.
var (
	ErrTransientFetch  = errors.New("transient fetch error")
	ErrPermanentFetch  = errors.New("permanent fetch error")
	ErrDecode          = errors.New("decode error")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// FetchError carries the URL and, when available, the HTTP status code
// behind a transient/permanent classification.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v (status %d)", e.URL, e.Err, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options customizes one request, overriding client-wide Config defaults.
type Options struct {
	Headers         map[string]string
	EncodingOverride string
	VerifyTLS       *bool // nil => true
	MaxRetries      *int
	Timeout         time.Duration
}

// Metadata describes a successful fetch alongside its decoded body.
type Metadata struct {
	StatusCode  int
	FinalURL    string
	ContentType string
}

// Client is the shared C1 HTTP client: every fetcher strategy issues
// requests through one of these rather than constructing its own
// *http.Client, so pacing/retry/circuit-breaking apply uniformly.
type Client struct {
	cfg            Config
	pacer          *domainPacer
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	plainClient    *http.Client
	laxClient      *http.Client
}

// New builds a Client from cfg, validating it first (falling back to
// DefaultConfig on validation failure, mirroring the teacher's fail-open
// config philosophy rather than panicking at startup).
func New(cfg Config) *Client {
	if err := cfg.Validate(); err != nil {
		cfg = DefaultConfig()
	}

	c := &Client{
		cfg:            cfg,
		pacer:          newDomainPacer(cfg.MaxConcurrentPerDomain, cfg.RequestDelay),
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
	if cfg.MaxRetries > 0 {
		c.retryConfig.MaxAttempts = cfg.MaxRetries
	}
	c.plainClient = c.newHTTPClient(false)
	c.laxClient = c.newHTTPClient(true)
	return c
}

func (c *Client) newHTTPClient(lax bool) *http.Client {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if lax {
		// TLS-laxity switch (spec §9 open question): when verify_tls=false
		// we relax both chain validation AND the cipher-suite floor, since
		// sources that need this flag are legacy servers failing modern
		// certificate validation as well as the TLS 1.2 handshake.
		tlsConfig = &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS10} //nolint:gosec
	}
	return &http.Client{
		Timeout: c.cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     tlsConfig,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= c.cfg.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := urlutil.ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("redirect target rejected: %w", err)
			}
			return nil
		},
	}
}

// FetchPage issues a GET and returns the decoded body bytes and metadata.
func (c *Client) FetchPage(ctx context.Context, rawURL string, opts Options) ([]byte, Metadata, error) {
	if err := urlutil.ValidateURL(rawURL); err != nil {
		return nil, Metadata{}, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrPermanentFetch, err)}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, Metadata{}, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrPermanentFetch, err)}
	}

	release, err := c.pacer.Acquire(ctx, u.Hostname())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer release()

	var body []byte
	var meta Metadata

	retryErr := retry.WithBackoff(ctx, c.effectiveRetry(opts), func() error {
		result, cbErr := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx, rawURL, opts)
		})
		if cbErr != nil {
			if errors.Is(cbErr, gobreaker.ErrOpenState) {
				return fmt.Errorf("%w: circuit open for host", ErrTransientFetch)
			}
			return cbErr
		}
		pair := result.(fetchResult)
		body, meta = pair.body, pair.meta
		return nil
	})
	if retryErr != nil {
		return nil, Metadata{}, retryErr
	}
	return body, meta, nil
}

// FetchJSON is FetchPage plus JSON decoding into out.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, opts Options, out interface{}) error {
	body, _, err := c.FetchPage(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

type fetchResult struct {
	body []byte
	meta Metadata
}

func (c *Client) doFetch(ctx context.Context, rawURL string, opts Options) (interface{}, error) {
	client := c.plainClient
	if opts.VerifyTLS != nil && !*opts.VerifyTLS {
		client = c.laxClient
	}

	timeout := c.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrPermanentFetch, err)}
	}

	ua := pickUserAgent(opts.Headers)
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		// err carries the real net.Error/syscall cause (timeouts included);
		// wrap it with %w rather than %v so retry.IsRetryable's errors.As/
		// errors.Is checks can still see it through FetchError.Unwrap.
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %w", ErrTransientFetch, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		httpErr := &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("http %d from %s", resp.StatusCode, rawURL)}
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %w", ErrTransientFetch, httpErr)}
	}
	if resp.StatusCode >= 400 {
		httpErr := &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("http %d from %s", resp.StatusCode, rawURL)}
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %w", ErrPermanentFetch, httpErr)}
	}

	reader, err := decodeContentEncoding(resp)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}

	limited := io.LimitReader(reader, c.cfg.MaxBodySize+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}
	if int64(len(raw)) > c.cfg.MaxBodySize {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: body exceeds %d bytes", ErrDecode, c.cfg.MaxBodySize)}
	}

	decoded, err := decodeCharset(raw, resp.Header.Get("Content-Type"), opts.EncodingOverride)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return fetchResult{
		body: decoded,
		meta: Metadata{StatusCode: resp.StatusCode, FinalURL: finalURL, ContentType: resp.Header.Get("Content-Type")},
	}, nil
}

func (c *Client) effectiveRetry(opts Options) retry.Config {
	cfg := c.retryConfig
	if opts.MaxRetries != nil {
		cfg.MaxAttempts = *opts.MaxRetries
	}
	return cfg
}

func pickUserAgent(headers map[string]string) string {
	if headers != nil {
		if ua, ok := headers["User-Agent"]; ok && ua != "" {
			return ua
		}
	}
	return userAgents[rand.IntN(len(userAgents))]
}

// decodeContentEncoding transparently decodes gzip/deflate/br per spec
// §4.1's "compression is transparent" requirement.
func decodeContentEncoding(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// decodeCharset decodes body bytes to UTF-8, honoring an explicit
// encoding_override first, then the Content-Type charset, then falling
// back to UTF-8 with replacement characters for malformed input.
func decodeCharset(body []byte, contentType, override string) ([]byte, error) {
	if override != "" {
		enc, err := htmlindex.Get(override)
		if err == nil {
			decoded, decErr := enc.NewDecoder().Bytes(body)
			if decErr == nil {
				return decoded, nil
			}
		}
	}

	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			if cs, ok := params["charset"]; ok && cs != "" {
				enc, err := htmlindex.Get(cs)
				if err == nil {
					decoded, decErr := enc.NewDecoder().Bytes(body)
					if decErr == nil {
						return decoded, nil
					}
				}
			}
		}
	}

	_, _, certain := charset.DetermineEncoding(body, contentType)
	if certain {
		return body, nil
	}
	return bytes.ToValidUTF8(body, []byte("�")), nil
}
