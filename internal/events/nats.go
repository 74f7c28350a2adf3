package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subjects, one per workflow transition
const (
	SubjectSubmissionRegistered = "bounty.submission.registered"
	SubjectVerificationRecorded = "bounty.verification.recorded"
	SubjectPoolFunded           = "bounty.pool.funded"
	SubjectPayoutMarked         = "bounty.payout.marked"
	SubjectPayoutClaimed        = "bounty.payout.claimed"
)

// NATSPublisher publishes workflow events to NATS subjects
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to NATS and returns a publisher
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("bountyd"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	logger.Info("connected to NATS", "url", url)
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshaling event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Error("publishing event", "subject", subject, "error", err)
		return
	}
	p.logger.Debug("event published", "subject", subject)
}

func (p *NATSPublisher) SubmissionRegistered(_ context.Context, e SubmissionRegistered) {
	p.publish(SubjectSubmissionRegistered, e)
}

func (p *NATSPublisher) VerificationRecorded(_ context.Context, e VerificationRecorded) {
	p.publish(SubjectVerificationRecorded, e)
}

func (p *NATSPublisher) PoolFunded(_ context.Context, e PoolFunded) {
	p.publish(SubjectPoolFunded, e)
}

func (p *NATSPublisher) PayoutMarked(_ context.Context, e PayoutMarked) {
	p.publish(SubjectPayoutMarked, e)
}

func (p *NATSPublisher) PayoutClaimed(_ context.Context, e PayoutClaimed) {
	p.publish(SubjectPayoutClaimed, e)
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		p.logger.Info("NATS connection closed")
	}
}
