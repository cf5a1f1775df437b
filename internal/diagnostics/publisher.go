package diagnostics

import (
	"context"
	"reflect"
	"sync"
	"time"

	"mplxls/internal/document"
	"mplxls/internal/metrics"
	"mplxls/internal/scheduler"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("mplxls.diagnostics")

// Checker produces the diagnostics for one buffer text.
type Checker interface {
	Check(ctx context.Context, text string) ([]protocol.Diagnostic, error)
}

// Publisher re-checks documents in the background and publishes the
// results. Each check is tagged with the buffer it ran against; a result is
// published only if that buffer is still the current one for the uri.
type Publisher struct {
	store     *document.Store
	checker   Checker
	scheduler *scheduler.Scheduler
	debounce  time.Duration
	metrics   *metrics.Metrics

	mu        sync.Mutex
	notify    glsp.NotifyFunc
	published map[string]published
}

type published struct {
	version     int32
	diagnostics []protocol.Diagnostic
}

func NewPublisher(
	store *document.Store,
	checker Checker,
	sched *scheduler.Scheduler,
	debounce time.Duration,
	m *metrics.Metrics,
) *Publisher {
	return &Publisher{
		store:     store,
		checker:   checker,
		scheduler: sched,
		debounce:  debounce,
		metrics:   m,
		published: make(map[string]published),
	}
}

// SetNotify sets the function used to send notifications to the host.
func (p *Publisher) SetNotify(notify glsp.NotifyFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notify = notify
}

// Schedule queues a check of uri's current buffer, superseding any check
// of the same uri that is pending or running.
func (p *Publisher) Schedule(uri string) {
	p.scheduler.ScheduleKeyed(uri, p.debounce, scheduler.Task{
		Name:    "check " + uri,
		Execute: func(ctx context.Context) error { return p.Check(ctx, uri) },
	})
}

// Check runs the checker over uri's current buffer and publishes the
// result if it is still current.
func (p *Publisher) Check(ctx context.Context, uri string) error {
	buf, ok := p.store.Get(uri)
	if !ok {
		return nil
	}

	diagnostics, err := p.checker.Check(ctx, buf.Text)
	if ctx.Err() != nil {
		p.metrics.Dropped()
		return ctx.Err()
	}
	if err != nil {
		// a failed run still publishes its empty batch
		log.Warningf("checker failed for %s: %s", uri, err)
	}

	p.publish(buf, diagnostics)
	return nil
}

func (p *Publisher) publish(checked document.Buffer, diagnostics []protocol.Diagnostic) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.store.Get(checked.URI)
	if !ok || current.Version != checked.Version || current.Text != checked.Text {
		log.Debugf("dropping stale diagnostics for %s version %d", checked.URI, checked.Version)
		p.metrics.Dropped()
		return
	}
	previous, seen := p.published[checked.URI]
	if seen && previous.version > checked.Version {
		p.metrics.Dropped()
		return
	}
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}

	p.published[checked.URI] = published{version: checked.Version, diagnostics: diagnostics}
	if seen && reflect.DeepEqual(previous.diagnostics, diagnostics) {
		return
	}

	version := protocol.UInteger(max(0, checked.Version))
	p.send(protocol.PublishDiagnosticsParams{
		URI:         checked.URI,
		Version:     &version,
		Diagnostics: diagnostics,
	})
}

// Retract cancels any check of uri and clears its diagnostics on the host.
func (p *Publisher) Retract(uri string) {
	p.scheduler.Cancel(uri)

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.published, uri)
	p.send(protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
}

// RecheckAll schedules a check of every open document.
func (p *Publisher) RecheckAll() {
	for _, buf := range p.store.All() {
		p.Schedule(buf.URI)
	}
}

func (p *Publisher) send(params protocol.PublishDiagnosticsParams) {
	if p.notify == nil {
		log.Warningf("no host connection, dropping diagnostics for %s", params.URI)
		return
	}
	p.notify(string(protocol.ServerTextDocumentPublishDiagnostics), params)
	p.metrics.Published()
}
