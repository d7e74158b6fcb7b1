// Package preview owns the lifecycle of the sandboxed rendering surface.
//
// Every render is a full reload: the previous execution context is discarded
// wholesale and a brand-new one evaluates the freshly composed document.
// Nothing from inside the sandbox propagates as a host error; failures
// surface only as relayed log records.
package preview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/penlabhq/penlab/internal/infrastructure/config"
	"github.com/penlabhq/penlab/internal/infrastructure/logging"
	"github.com/penlabhq/penlab/internal/infrastructure/monitoring"
	"github.com/penlabhq/penlab/internal/preview/compose"
	"github.com/penlabhq/penlab/internal/preview/relay"
	"github.com/penlabhq/penlab/internal/preview/sandbox"
	"github.com/penlabhq/penlab/internal/shared/types"
)

// State describes the execution context. There is no error state: a failing
// script still leaves the context Running with the document rendered.
type State string

const (
	StateIdle    State = "idle"    // no document loaded yet
	StateRunning State = "running" // current document loaded and evaluated
)

// Manager composes documents and feeds them to fresh sandbox instances.
type Manager struct {
	cfg     sandbox.Config
	store   *relay.Store
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu    sync.Mutex
	state State
}

// RenderResult is the synchronous outcome of one render cycle.
type RenderResult struct {
	Generation uint64            `json:"generation"`
	Document   string            `json:"document"`
	Logs       []types.LogRecord `json:"logs"`
	DurationMS int64             `json:"duration_ms"`
}

// Standalone is the composed document offered as a downloadable artifact.
type Standalone struct {
	Filename    string
	ContentType string
	Body        []byte
}

// NewManager creates a preview manager.
func NewManager(cfg config.PreviewConfig, store *relay.Store, logger *logging.Logger) *Manager {
	return &Manager{
		cfg: sandbox.Config{
			Timeout:      cfg.Timeout,
			MaxCallStack: cfg.MaxCallStack,
		},
		store:  store,
		logger: logger,
		state:  StateIdle,
	}
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// State returns the current execution context state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Store returns the relay store backing this manager.
func (m *Manager) Store() *relay.Store {
	return m.store
}

// Render replaces the execution context with a freshly composed document for
// the bundle. The user script is evaluated in a brand-new sandbox; console
// calls and uncaught errors flow through the relay tagged with this cycle's
// generation, so output from a replaced cycle can no longer land in the log.
//
// The returned error covers only host-side setup failure. A throwing or
// timed-out user script is not an error here: it becomes an error-level log
// record and the rest of the document stays rendered.
func (m *Manager) Render(ctx context.Context, bundle types.SourceBundle) (*RenderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	document := compose.Document(bundle)
	generation := m.store.Advance()
	m.state = StateRunning

	dom, err := sandbox.NewDOM(document)
	if err != nil {
		// The HTML parser recovers from anything a user can type; failing
		// here means the host itself is broken.
		return nil, err
	}

	var logs []types.LogRecord
	emit := func(e sandbox.Entry) {
		record, ok := m.store.Relay(relay.ConsoleMessage{
			Channel:    relay.ChannelConsole,
			Level:      e.Level,
			Message:    e.Message,
			Generation: generation,
		})
		if !ok {
			if m.metrics != nil {
				m.metrics.StaleMessages.Inc()
			}
			return
		}
		logs = append(logs, record)
		if m.metrics != nil {
			m.metrics.ConsoleMessages.WithLabelValues(string(e.Level)).Inc()
		}
	}

	runtime, err := sandbox.New(m.cfg, emit)
	if err != nil {
		return nil, err
	}

	result := runtime.Execute(ctx, bundle.JavaScript, dom)
	if result.Err != nil {
		emit(sandbox.Entry{Level: types.LevelError, Message: result.Err.Error()})
		m.logger.Debug("sandboxed script failed",
			zap.Uint64("generation", generation),
			zap.Error(result.Err),
		)
	}

	if m.metrics != nil {
		m.metrics.RendersTotal.Inc()
		m.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}

	return &RenderResult{
		Generation: generation,
		Document:   document,
		Logs:       logs,
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// OpenStandalone composes the same document as Render and offers it as a
// downloadable text/html artifact. Same composer, different sink.
func (m *Manager) OpenStandalone(bundle types.SourceBundle) Standalone {
	return Standalone{
		Filename:    "penlab-preview.html",
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(compose.Document(bundle)),
	}
}
