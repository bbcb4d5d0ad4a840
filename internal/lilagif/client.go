package lilagif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/park285/pgn2gif/pkg/gifdto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxConns = 64
	maxErrorBody    = 512
)

var ErrNilRequest = errors.New("render request is nil")

// Renderer turns a game request into encoded GIF bytes.
type Renderer interface {
	Render(ctx context.Context, req *gifdto.GameRequest) ([]byte, error)
}

// StatusError is a non-2xx answer from the render service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("render service error: status=%d body=%s", e.Code, e.Body)
}

// Client posts game requests to a lila-gif compatible endpoint. It is safe
// for concurrent use; all callers share one fasthttp connection pool.
type Client struct {
	url     string
	http    *fasthttp.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

type Option func(*Client)

// WithTimeout bounds each request, including the wait for a free connection.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxConns sizes the connection pool; use at least the worker count.
func WithMaxConns(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.http.MaxConnsPerHost = n
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the cap.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:     strings.TrimSpace(url),
		http:    &fasthttp.Client{MaxConnsPerHost: defaultMaxConns},
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.ReadTimeout = c.timeout
	c.http.WriteTimeout = c.timeout
	c.http.MaxConnWaitTimeout = c.timeout
	return c
}

// Render sends one request. Any non-2xx status comes back as *StatusError.
func (c *Client) Render(ctx context.Context, in *gifdto.GameRequest) ([]byte, error) {
	if in == nil {
		return nil, ErrNilRequest
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, &StatusError{Code: status, Body: truncate(string(resp.Body()), maxErrorBody)}
	}

	body := append([]byte(nil), resp.Body()...)
	c.logger.Debug("render_ok",
		zap.String("white", in.White),
		zap.String("black", in.Black),
		zap.Int("frames", len(in.Frames)),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)),
	)
	return body, nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
