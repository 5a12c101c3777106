// Package events publishes run outcomes to NATS so external consumers
// (dashboards, chat notifiers) can react without polling the history store.
// Publishing is best effort: a run never fails because the broker is down.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docgate/internal/config"
	"git.home.luguber.info/inful/docgate/internal/logfields"
	"git.home.luguber.info/inful/docgate/internal/pipeline"
)

// DefaultSubject is used when the configuration names none.
const DefaultSubject = "docgate.runs"

const connectTimeout = 5 * time.Second

// RunEvent is the JSON payload published after each run.
type RunEvent struct {
	RunID       string `json:"run_id"`
	Trigger     string `json:"trigger"`
	CI          bool   `json:"ci"`
	Outcome     string `json:"outcome"`
	Commit      string `json:"commit,omitempty"`
	StubCount   int    `json:"stub_count"`
	BrokenLinks int    `json:"broken_links,omitempty"`

	// Gate fields are nil when the corresponding gate did not run.
	SourcesClean   *bool     `json:"sources_clean,omitempty"`
	PublishedClean *bool     `json:"published_clean,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewRunEvent flattens a report into its published form.
func NewRunEvent(report *pipeline.RunReport) RunEvent {
	ev := RunEvent{
		RunID:          report.RunID,
		Trigger:        string(report.Trigger),
		CI:             report.CI,
		Outcome:        report.Outcome,
		Commit:         report.Commit,
		StubCount:      report.StubCount,
		BrokenLinks:    report.BrokenLinks,
		SourcesClean:   gateResult(report.Gates.Sources),
		PublishedClean: gateResult(report.Gates.Published),
		DurationMS:     report.End.Sub(report.Start).Milliseconds(),
	}
	if len(report.Errors) > 0 {
		ev.Error = report.Errors[0].Error()
	}
	return ev
}

func gateResult(g pipeline.GateState) *bool {
	if !g.Checked {
		return nil
	}
	clean := g.Clean
	return &clean
}

// Publisher sends run events to a NATS subject. The connection is opened
// lazily on the first publish, so a misconfigured or absent broker costs
// nothing until events are actually emitted.
type Publisher struct {
	url     string
	subject string

	mu   sync.Mutex
	conn *nats.Conn
	// connect defaults to nats.Connect; injectable for tests.
	connect func(url string, opts ...nats.Option) (*nats.Conn, error)
}

// NewPublisher builds a publisher from the events configuration, applying the
// NATS default URL and DefaultSubject for empty fields.
func NewPublisher(cfg config.EventsConfig) *Publisher {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{url: url, subject: subject, connect: nats.Connect}
}

// Publish emits one run event and flushes it to the broker.
func (p *Publisher) Publish(ctx context.Context, report *pipeline.RunReport) error {
	conn, err := p.connection()
	if err != nil {
		return err
	}

	ev := NewRunEvent(report)
	ev.Timestamp = time.Now()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	if err := conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush run event: %w", err)
	}

	slog.Debug("Published run event",
		logfields.Subject(p.subject),
		logfields.RunID(report.RunID),
		logfields.Outcome(report.Outcome))
	return nil
}

func (p *Publisher) connection() (*nats.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return p.conn, nil
	}

	conn, err := p.connect(p.url, nats.Name("docgate"), nats.Timeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p.conn = conn
	slog.Info("Connected to NATS", logfields.URL(p.url), logfields.Subject(p.subject))
	return p.conn, nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	return nil
}
