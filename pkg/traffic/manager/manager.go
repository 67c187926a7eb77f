package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"ucraft/trafficlogger/pkg/config"
	"ucraft/trafficlogger/pkg/telemetry/logging"
	"ucraft/trafficlogger/pkg/telemetry/metrics"
	"ucraft/trafficlogger/pkg/telemetry/tracing"
	"ucraft/trafficlogger/pkg/traffic"
	"ucraft/trafficlogger/pkg/traffic/publish"
	"ucraft/trafficlogger/pkg/traffic/record"
	"ucraft/trafficlogger/pkg/traffic/redact"
)

// DefaultWriteTimeout bounds one store+publish attempt.
const DefaultWriteTimeout = 5 * time.Second

// Skip reasons reported to metrics.
const (
	SkipDisabled = "disabled"
	SkipMethod   = "method"
)

// Config contains configuration for the traffic manager.
type Config struct {
	// Enabled turns capture on.
	Enabled bool

	// Methods is the allow-list of request methods (upper case).
	Methods []string

	// Record configures redaction and capture limits of each record.
	Record record.Config

	// AsyncBuffer is the capacity of the background queue. Zero stores and
	// publishes on the calling goroutine.
	AsyncBuffer int

	// WriteTimeout bounds one store+publish attempt.
	WriteTimeout time.Duration
}

// FromConfig builds a manager Config from the traffic section.
func FromConfig(cfg *config.TrafficConfig) Config {
	return Config{
		Enabled: cfg.Enabled,
		Methods: cfg.RequestMethods,
		Record: record.Config{
			Redactor: redact.New(redact.Config{
				HiddenHeaders:   cfg.HiddenHeaders,
				HiddenCookies:   cfg.HiddenCookieFragments(),
				SensitiveTokens: cfg.SensitiveTokens,
			}),
			MaxBodyBytes:        cfg.MaxBodyBytes,
			TrustForwardedProto: cfg.TrustForwardedProto,
		},
		AsyncBuffer:  cfg.AsyncBuffer,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Outcome describes how far one record got through the pipeline.
type Outcome struct {
	RecordID  string
	Locator   string
	Stored    bool
	Published bool
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithMetrics records pipeline metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithTracer emits pipeline spans through t.
func WithTracer(t *tracing.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager captures exchanges and hands finished records to the sink and the
// publisher. Record never fails from the caller's point of view: storage and
// dispatch errors are logged and counted, never returned.
type Manager struct {
	cfg       Config
	methods   map[string]struct{}
	sink      traffic.Sink
	publisher *publish.Publisher
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	logger    *slog.Logger

	queue     chan job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

type job struct {
	ctx    context.Context
	entry  traffic.Entry
	method string
	status int
}

// New creates a Manager. sink may be nil to skip storage and publisher may be
// nil to skip dispatch. The caller keeps ownership of both and closes them
// after Close returns.
func New(cfg Config, sink traffic.Sink, publisher *publish.Publisher, opts ...Option) *Manager {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	m := &Manager{
		cfg:       cfg,
		methods:   make(map[string]struct{}, len(cfg.Methods)),
		sink:      sink,
		publisher: publisher,
		tracer:    tracing.Noop(),
		logger:    slog.Default().With("component", "traffic.manager"),
	}
	for _, method := range cfg.Methods {
		m.methods[strings.ToUpper(method)] = struct{}{}
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.AsyncBuffer > 0 {
		m.queue = make(chan job, cfg.AsyncBuffer)
		m.wg.Add(1)
		go m.worker()
	}

	m.logger.Info("traffic manager initialized",
		"enabled", cfg.Enabled,
		"methods", cfg.Methods,
		"sink", m.sinkName(),
		"dispatcher", m.dispatcherName(),
		"async_buffer", cfg.AsyncBuffer,
	)

	return m
}

// Enabled reports whether capture is turned on.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// MaxBodyBytes is the capture cap applied to request and response bodies.
func (m *Manager) MaxBodyBytes() int64 {
	if m.cfg.Record.MaxBodyBytes <= 0 {
		return record.DefaultMaxBodyBytes
	}
	return m.cfg.Record.MaxBodyBytes
}

// ShouldCapture reports whether a request with method is logged, counting the
// request as skipped when it is not.
func (m *Manager) ShouldCapture(method string) bool {
	if !m.cfg.Enabled {
		m.metrics.RecordSkipped(SkipDisabled)
		return false
	}
	if _, ok := m.methods[strings.ToUpper(method)]; !ok {
		m.metrics.RecordSkipped(SkipMethod)
		return false
	}
	return true
}

// Capture creates a record stamped with the current time and captures the
// request facet. It must run before the downstream handler reads the body.
func (m *Manager) Capture(r *http.Request) *record.Record {
	rec := record.New(time.Now(), m.cfg.Record)
	rec.CaptureRequest(r)
	m.metrics.RecordCapture(rec.Method())
	return rec
}

// Record serializes rec, stores it and publishes the event. With an async
// buffer the work is queued and Record returns at once; a full queue drops
// the record. Record never panics and never returns an error.
func (m *Manager) Record(ctx context.Context, rec *record.Record) {
	if rec == nil {
		return
	}
	if !rec.ResponseCaptured() {
		m.logger.WarnContext(ctx, "recording exchange without response facet", "record_id", rec.ID())
	}
	m.metrics.RecordExchange(rec.Method(), time.Duration(rec.Duration()*float64(time.Millisecond)))

	payload, err := rec.MarshalJSON()
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to encode traffic record",
			"record_id", rec.ID(),
			"error", traffic.NewRecordError(rec.ID(), "encode", err),
		)
		return
	}

	j := job{
		ctx: context.WithoutCancel(ctx),
		entry: traffic.Entry{
			ID:        rec.ID(),
			CreatedAt: rec.CreatedAt(),
			Payload:   payload,
		},
		method: rec.Method(),
		status: rec.Status(),
	}

	if m.queue == nil {
		m.process(j)
		return
	}
	m.enqueue(j)
}

func (m *Manager) enqueue(j job) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		m.metrics.RecordDropped("shutdown")
		m.logger.WarnContext(j.ctx, "traffic manager shutting down, dropping record", "record_id", j.entry.ID)
		return
	}

	select {
	case m.queue <- j:
		m.metrics.SetQueueDepth(len(m.queue))
	default:
		m.metrics.RecordDropped("queue_full")
		m.logger.ErrorContext(j.ctx, "traffic queue full, dropping record",
			"record_id", j.entry.ID,
			"capacity", cap(m.queue),
		)
	}
}

// Close stops accepting queued records and waits until every queued record
// has been processed. It does not close the sink or the publisher.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		if m.queue != nil {
			close(m.queue)
		}
		m.mu.Unlock()

		m.wg.Wait()
		m.logger.Info("traffic manager shut down")
	})
	return nil
}

func (m *Manager) worker() {
	defer m.wg.Done()

	for j := range m.queue {
		m.metrics.SetQueueDepth(len(m.queue))
		m.process(j)
	}
}

// process runs the store+publish boundary for one record and logs its
// outcome. Panics from a sink or dispatcher are contained here.
func (m *Manager) process(j job) {
	ctx := logging.WithRecordID(j.ctx, j.entry.ID)
	ctx, span := m.tracer.Start(ctx, "traffic.record")
	defer span.End()
	tracing.SetRecordAttributes(span, j.entry.ID, j.method, j.status)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	out, err := m.safePersist(ctx, j.entry)
	tracing.SetStatus(span, err)

	if err != nil {
		stage := "unknown"
		var recErr *traffic.RecordError
		if errors.As(err, &recErr) {
			stage = recErr.Stage
		}
		m.logger.ErrorContext(ctx, "failed to record traffic",
			"stage", stage,
			"sink", m.sinkName(),
			"dispatcher", m.dispatcherName(),
			"stored", out.Stored,
			"error", err,
		)
		return
	}

	m.logger.DebugContext(ctx, "traffic recorded",
		"locator", out.Locator,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (m *Manager) safePersist(ctx context.Context, entry traffic.Entry) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = traffic.NewRecordError(entry.ID, "panic", fmt.Errorf("%v", r))
		}
	}()
	return m.persist(ctx, entry)
}

// persist stores the entry and publishes its event.
func (m *Manager) persist(ctx context.Context, entry traffic.Entry) (Outcome, error) {
	out := Outcome{RecordID: entry.ID}

	if m.sink != nil {
		locator, err := m.store(ctx, entry)
		if err != nil {
			return out, traffic.NewRecordError(entry.ID, "store", err)
		}
		out.Locator = locator
		out.Stored = true
	}

	if m.publisher != nil {
		if err := m.publish(ctx, entry, out.Locator); err != nil {
			return out, traffic.NewRecordError(entry.ID, "publish", err)
		}
		out.Published = true
	}

	return out, nil
}

func (m *Manager) store(ctx context.Context, entry traffic.Entry) (string, error) {
	ctx, span := m.tracer.Start(ctx, "traffic.sink.store")
	defer span.End()

	start := time.Now()
	locator, err := m.sink.Store(ctx, entry)
	m.metrics.RecordSinkWrite(m.sink.Name(), err, time.Since(start))

	tracing.SetSinkAttributes(span, m.sink.Name(), locator)
	tracing.SetStatus(span, err)
	return locator, err
}

func (m *Manager) publish(ctx context.Context, entry traffic.Entry, locator string) error {
	ctx, span := m.tracer.Start(ctx, "traffic.publish")
	defer span.End()

	err := m.publisher.Publish(ctx, entry, locator)
	m.metrics.RecordPublish(m.dispatcherName(), err)

	tracing.SetPublishAttributes(span, m.dispatcherName(), m.publisher.Topic())
	tracing.SetStatus(span, err)
	return err
}

func (m *Manager) sinkName() string {
	if m.sink == nil {
		return ""
	}
	return m.sink.Name()
}

func (m *Manager) dispatcherName() string {
	if m.publisher == nil {
		return ""
	}
	return m.publisher.Dispatcher().Name()
}
