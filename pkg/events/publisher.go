package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// VerdictEvent is published on the configured subject once a submission
// reaches a terminal state. Downstream consumers (leaderboards, contest
// scoreboards) react to these instead of polling the record store.
type VerdictEvent struct {
	SubmissionID uint      `json:"submission_id"`
	UserID       uint      `json:"user_id"`
	ProblemID    uint      `json:"problem_id"`
	Language     string    `json:"language"`
	Status       string    `json:"status"`
	TestsPassed  int       `json:"tests_passed"`
	TotalTests   int       `json:"total_tests"`
	RuntimeMs    int64     `json:"runtime_ms"`
	MemoryKB     int64     `json:"memory_kb"`
	JudgedAt     time.Time `json:"judged_at"`
}

// Publisher fans judged verdicts out to interested consumers.
type Publisher interface {
	PublishVerdict(event VerdictEvent)
}

// NopPublisher drops all events; used when NATS is not configured.
type NopPublisher struct{}

// PublishVerdict implements Publisher.
func (NopPublisher) PublishVerdict(VerdictEvent) {}

// NATSPublisher publishes verdict events onto a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher constructs a verdict publisher over an established connection.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "verdict_publisher").Logger(),
	}
}

// PublishVerdict sends the event; publish failures are logged, never surfaced,
// because the verdict is already durable in the record store.
func (p *NATSPublisher) PublishVerdict(event VerdictEvent) {
	if p.conn == nil || p.subject == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to encode verdict event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Error().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to publish verdict event")
	}
}
