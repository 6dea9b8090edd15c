package sms

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/riskibarqy/homerun-cage/internal/domain/notification"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/resilience"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

var (
	errGatewayTransient = crerr.New("sms gateway transient failure")
	// ErrRejected means the gateway refused the message itself; resending
	// the same message will not help.
	ErrRejected = crerr.New("sms rejected by gateway")
)

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RatePerSecond  float64
	Burst          int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client posts messages to an HTTP SMS gateway:
// POST {BaseURL}/messages {"to","from","body"} with a bearer API key.
type Client struct {
	httpClient *fasthttp.Client
	endpoint   string
	apiKey     string
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &fasthttp.Client{
			MaxConnsPerHost:     32,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + "/messages",
		apiKey:   strings.TrimSpace(cfg.APIKey),
		timeout:  timeout,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:   logger,
		breaker:  resilience.NewCircuitBreaker("sms-gateway", cfg.CircuitBreaker),
	}
}

type sendRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

func (c *Client) Send(ctx context.Context, msg notification.SMS) error {
	if err := msg.Validate(); err != nil {
		return crerr.Mark(err, ErrRejected)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return crerr.Wrap(err, "wait for sms rate limit")
	}

	body, err := sonic.Marshal(sendRequest{To: msg.To, From: msg.SenderID, Body: msg.Body})
	if err != nil {
		return crerr.Wrap(err, "marshal sms request")
	}

	err = c.breaker.Execute(func() error { return c.post(ctx, body) }, isGatewayCircuitFailure)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "sms gateway circuit breaker rejected request", "state", c.breaker.State())
		return fmt.Errorf("%w: sms gateway is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	return err
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.SetBody(body)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return crerr.Mark(crerr.Wrap(err, "send sms request"), errGatewayTransient)
	}

	status := resp.StatusCode()
	if status/100 == 2 {
		return nil
	}
	callErr := crerr.Newf("sms gateway status=%d body=%s", status, abbreviate(resp.Body()))
	if status == fasthttp.StatusTooManyRequests || status == fasthttp.StatusRequestTimeout || status >= fasthttp.StatusInternalServerError {
		return crerr.Mark(callErr, errGatewayTransient)
	}
	return crerr.Mark(callErr, ErrRejected)
}

func isGatewayCircuitFailure(err error) bool {
	return crerr.Is(err, errGatewayTransient)
}

func abbreviate(raw []byte) string {
	const max = 512
	text := strings.TrimSpace(string(raw))
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

// LogSender writes messages to the log instead of a gateway. It backs
// development setups without SMS credentials.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger.Named("sms")}
}

func (s *LogSender) Send(ctx context.Context, msg notification.SMS) error {
	if err := msg.Validate(); err != nil {
		return crerr.Mark(err, ErrRejected)
	}
	s.logger.InfoContext(ctx, "sms (log only)",
		"to", msg.To,
		"from", msg.SenderID,
		"kind", msg.Kind,
		"player_id", msg.PlayerID,
		"body", msg.Body,
	)
	return nil
}
