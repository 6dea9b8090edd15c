package jobqueue

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/resilience"
)

const (
	DriverQStash = "qstash"

	// InternalJobPathPrefix is where qstash delivers jobs back to this service.
	InternalJobPathPrefix = "/v1/internal/jobs/"
	// DispatchIDHeader carries the audit dispatch id on delivered jobs.
	DispatchIDHeader = "X-Job-Dispatch-Id"

	internalTokenHeader = "X-Internal-Job-Token"
	maxErrorBody        = 4096
)

var errQStashTransient = errors.New("qstash transient failure")

type QStashPublisherConfig struct {
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
}

// QStashPublisher hands jobs to Upstash QStash, which calls back
// POST {TargetBaseURL}/v1/internal/jobs/{kind} with the payload.
type QStashPublisher struct {
	cfg     QStashPublisherConfig
	client  *http.Client
	logger  *logging.Logger
	audit   Auditor
	breaker *resilience.CircuitBreaker
}

func NewQStashPublisher(cfg QStashPublisherConfig, audit Auditor, logger *logging.Logger) *QStashPublisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.InternalJobToken = strings.TrimSpace(cfg.InternalJobToken)

	return &QStashPublisher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.Named("jobqueue.qstash"),
		audit:   audit,
		breaker: resilience.NewCircuitBreaker("qstash", cfg.CircuitBreaker),
	}
}

// qstashMessage is one publish call. Its headers feed both the real request
// and the masked curl line written to logs and spans.
type qstashMessage struct {
	kind       string
	publishURL string
	targetURL  string
	body       []byte
	delay      time.Duration
	retries    int
	dedupID    string
	dispatchID string
	jobToken   string
}

func (p *QStashPublisher) message(kind string, payload any, delay time.Duration, dedupID string) (qstashMessage, error) {
	kind = strings.Trim(strings.TrimSpace(kind), "/")
	if kind == "" {
		return qstashMessage{}, errors.New("job kind is required")
	}
	base, err := httpBaseURL(p.cfg.BaseURL)
	if err != nil {
		return qstashMessage{}, errors.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	target, err := httpBaseURL(p.cfg.TargetBaseURL)
	if err != nil {
		return qstashMessage{}, errors.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}
	body, err := encodePayload(payload)
	if err != nil {
		return qstashMessage{}, err
	}

	m := qstashMessage{
		kind:      kind,
		targetURL: target + InternalJobPathPrefix + kind,
		body:      body,
		delay:     delay,
		retries:   p.cfg.Retries,
		dedupID:   strings.TrimSpace(dedupID),
		jobToken:  p.cfg.InternalJobToken,
	}
	m.publishURL = base + "/v2/publish/" + m.targetURL
	m.dispatchID = m.dedupID
	if m.dispatchID == "" {
		m.dispatchID = "qstash-" + kind + "-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return m, nil
}

func (m qstashMessage) header(bearer string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+bearer)
	h.Set("Content-Type", "application/json")
	h.Set("Upstash-Method", http.MethodPost)
	if m.retries > 0 {
		h.Set("Upstash-Retries", strconv.Itoa(m.retries))
	}
	if m.delay > 0 {
		h.Set("Upstash-Delay", delaySeconds(m.delay))
	}
	if m.dedupID != "" {
		h.Set("Upstash-Deduplication-Id", m.dedupID)
	}
	if m.jobToken != "" {
		h.Set("Upstash-Forward-"+internalTokenHeader, m.jobToken)
	}
	h.Set("Upstash-Forward-"+DispatchIDHeader, m.dispatchID)
	return h
}

// curl renders the request with secrets replaced by ***.
func (m qstashMessage) curl() string {
	h := m.header("***")
	if m.jobToken != "" {
		h.Set("Upstash-Forward-"+internalTokenHeader, "***")
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString("curl -X POST ")
	_, _ = buf.WriteString(shellQuote(m.publishURL))
	for _, k := range keys {
		_, _ = buf.WriteString(" -H ")
		_, _ = buf.WriteString(shellQuote(k + ": " + h.Get(k)))
	}
	_, _ = buf.WriteString(" -d ")
	_, _ = buf.WriteString(shellQuote(truncate(string(m.body), maxErrorBody)))
	return buf.String()
}

func (p *QStashPublisher) Enqueue(ctx context.Context, kind string, payload any, delay time.Duration, deduplicationID string) error {
	m, err := p.message(kind, payload, delay, deduplicationID)
	if err != nil {
		return err
	}

	preview := m.curl()
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.job_kind", m.kind),
			attribute.String("qstash.target_url", m.targetURL),
			attribute.String("qstash.request_curl_preview", preview),
		)
	}
	p.logger.DebugContext(ctx, "qstash publish request", "kind", m.kind, "curl_preview", preview)

	err = p.breaker.Execute(func() error { return p.send(ctx, m) }, isQStashCircuitFailure)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		p.logger.WarnContext(ctx, "qstash circuit breaker rejected request", "state", p.breaker.State())
		return errors.Wrap(err, "qstash is temporarily unavailable")
	}
	if err != nil {
		return err
	}

	if p.audit != nil {
		p.audit.Record(ctx, jobscheduler.DispatchEvent{
			DispatchID: m.dispatchID,
			JobKind:    m.kind,
			Driver:     DriverQStash,
			Status:     jobscheduler.StatusSent,
			Payload:    m.body,
		})
	}
	p.logger.InfoContext(ctx, "qstash job published", "kind", m.kind, "delay", delaySeconds(m.delay), "deduplication_id", m.dedupID)
	return nil
}

func (p *QStashPublisher) send(ctx context.Context, m qstashMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.publishURL, bytes.NewReader(m.body))
	if err != nil {
		return errors.Wrap(err, "create qstash request")
	}
	req.Header = m.header(p.cfg.Token)

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "publish qstash job target_url=%s", m.targetURL), errQStashTransient)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	callErr := errors.Newf("publish qstash job status=%d target_url=%s body=%s",
		resp.StatusCode, m.targetURL, strings.TrimSpace(string(raw)))
	if retryableStatus(resp.StatusCode) {
		return errors.Mark(callErr, errQStashTransient)
	}
	return callErr
}

// DecodeQStashBody validates a delivered job body before it reaches the
// registry.
func DecodeQStashBody(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return []byte("{}"), nil
	}
	if !sonic.Valid(body) {
		return nil, errors.New("job body is not valid JSON")
	}
	return body, nil
}

func delaySeconds(delay time.Duration) string {
	if delay <= 0 {
		return "0s"
	}
	return strconv.FormatInt(int64(delay.Round(time.Second)/time.Second), 10) + "s"
}

func httpBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", errors.New("value is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "parse %q", raw)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return "", errors.Newf("%q uses unsupported scheme=%q; expected http or https", raw, u.Scheme)
	case u.Host == "":
		return "", errors.Newf("%q has empty host", raw)
	}
	return raw, nil
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}

func isQStashCircuitFailure(err error) bool {
	return errors.Is(err, errQStashTransient)
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
