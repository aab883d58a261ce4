package repository

import (
	"context"
	"strings"

	"nichescope/internal/domain/models"
	domrepo "nichescope/internal/domain/repository"
	pkgkafka "nichescope/pkg/kafka"
)

// Report event kinds carried in the envelope.
const (
	EventEvaluation   = "evaluation.completed"
	EventNiche        = "niche.qualified"
	EventStressReport = "stress_report.completed"
)

// ReportEvent is the envelope written to the reports topic.
type ReportEvent struct {
	Type    string      `json:"type"`
	Key     string      `json:"key"`
	Payload interface{} `json:"payload"`
}

// KafkaReportPublisher implements ReportPublisher for Kafka. Stress reports are keyed by
// niche keyword so the reports of one niche stay ordered within a partition.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

// PublishEvaluation writes the run followed by one event per qualified niche, in a single batch.
func (p *KafkaReportPublisher) PublishEvaluation(ctx context.Context, r *models.EvaluationResult) error {
	return p.producer.PublishBatch(ctx, p.topic, evaluationMessages(r))
}

func (p *KafkaReportPublisher) PublishStressReport(ctx context.Context, r *models.StressTestReport) error {
	key := nicheKey(r.NicheKeyword)
	return p.producer.Publish(ctx, p.topic, pkgkafka.Message{
		Key:   key,
		Event: EventStressReport,
		Value: ReportEvent{Type: EventStressReport, Key: key, Payload: r},
	})
}

func evaluationMessages(r *models.EvaluationResult) []pkgkafka.Message {
	msgs := make([]pkgkafka.Message, 0, len(r.Niches)+1)
	msgs = append(msgs, pkgkafka.Message{
		Key:   r.RunID,
		Event: EventEvaluation,
		Value: ReportEvent{Type: EventEvaluation, Key: r.RunID, Payload: r},
	})
	for _, n := range r.Niches {
		if n == nil {
			continue
		}
		key := nicheKey(n.PrimaryKeyword)
		msgs = append(msgs, pkgkafka.Message{
			Key:   key,
			Event: EventNiche,
			Value: ReportEvent{Type: EventNiche, Key: key, Payload: n},
		})
	}
	return msgs
}

func nicheKey(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.ReportPublisher = (*KafkaReportPublisher)(nil)
