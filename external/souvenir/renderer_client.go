package souvenir

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/fasthttp"

	domain "github.com/riskibarqy/homerun-cage/internal/domain/souvenir"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/resilience"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

var errRendererTransient = crerr.New("souvenir renderer transient failure")

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client asks the souvenir render service for a card image:
// POST {BaseURL}/render with the render request, answered by {"image_ref"}.
type Client struct {
	httpClient *fasthttp.Client
	endpoint   string
	apiKey     string
	timeout    time.Duration
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
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &fasthttp.Client{
			MaxConnsPerHost:     8,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + "/render",
		apiKey:   strings.TrimSpace(cfg.APIKey),
		timeout:  timeout,
		logger:   logger,
		breaker:  resilience.NewCircuitBreaker("souvenir-renderer", cfg.CircuitBreaker),
	}
}

type renderResponse struct {
	ImageRef string `json:"image_ref"`
}

func (c *Client) Render(ctx context.Context, req domain.RenderRequest) (string, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return "", crerr.New("render request game id is required")
	}
	body, err := sonic.Marshal(req)
	if err != nil {
		return "", crerr.Wrap(err, "marshal render request")
	}

	var imageRef string
	call := func() error {
		ref, callErr := c.post(ctx, body)
		imageRef = ref
		return callErr
	}
	err = c.breaker.Execute(call, isRendererCircuitFailure)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "souvenir renderer circuit breaker rejected request", "state", c.breaker.State())
		return "", fmt.Errorf("%w: souvenir renderer is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return "", crerr.Wrapf(err, "render souvenir game_id=%s", req.GameID)
	}
	return imageRef, nil
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
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
		return "", crerr.Mark(crerr.Wrap(err, "send render request"), errRendererTransient)
	}

	status := resp.StatusCode()
	if status/100 != 2 {
		callErr := crerr.Newf("souvenir renderer status=%d", status)
		if status == fasthttp.StatusTooManyRequests || status >= fasthttp.StatusInternalServerError {
			return "", crerr.Mark(callErr, errRendererTransient)
		}
		return "", callErr
	}

	var out renderResponse
	if err := sonic.Unmarshal(resp.Body(), &out); err != nil {
		return "", crerr.Wrap(err, "decode render response")
	}
	if strings.TrimSpace(out.ImageRef) == "" {
		return "", crerr.New("souvenir renderer returned an empty image ref")
	}
	return out.ImageRef, nil
}

func isRendererCircuitFailure(err error) bool {
	return crerr.Is(err, errRendererTransient)
}

// PlaceholderRenderer returns a stable reference without rendering anything.
// It stands in when no render service is configured.
type PlaceholderRenderer struct {
	prefix string
}

func NewPlaceholderRenderer(prefix string) *PlaceholderRenderer {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "placeholder://souvenirs"
	}
	return &PlaceholderRenderer{prefix: prefix}
}

func (r *PlaceholderRenderer) Render(_ context.Context, req domain.RenderRequest) (string, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return "", crerr.New("render request game id is required")
	}
	return r.prefix + "/" + req.GameID + ".png", nil
}
