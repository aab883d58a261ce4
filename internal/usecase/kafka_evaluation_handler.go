package usecase

import (
	"context"
	"encoding/json"
	"time"

	"nichescope/internal/domain/models"
	domrepo "nichescope/internal/domain/repository"
	xhttp "nichescope/pkg/http"
	pkgkafka "nichescope/pkg/kafka"
	"nichescope/pkg/logger"
)

// EventEvaluationRequested marks evaluation requests. Messages without an event header are
// treated as requests too.
const EventEvaluationRequested = "evaluation.requested"

// KafkaEvaluationHandler consumes evaluation requests from Kafka and runs them.
// Results reach storage and the reports topic through the service's report sink.
type KafkaEvaluationHandler struct {
	topic   string
	svc     *NicheService
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewKafkaEvaluationHandler(topic string, svc *NicheService, metrics domrepo.Metrics, l *logger.Logger) *KafkaEvaluationHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &KafkaEvaluationHandler{topic: topic, svc: svc, metrics: metrics, log: l}
}

func (h *KafkaEvaluationHandler) Topic() string { return h.topic }

// Handle runs one request. Malformed or invalid requests are logged and acknowledged,
// since redelivery cannot fix them; engine failures are returned for retry.
func (h *KafkaEvaluationHandler) Handle(ctx context.Context, d pkgkafka.Delivery) error {
	if d.Event != "" && d.Event != EventEvaluationRequested {
		h.log.Debug("evaluation request skipped: foreign event", logger.String("event", d.Event))
		return nil
	}
	req := *h.svc.NewEvaluateRequest()
	if err := json.Unmarshal(d.Value, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.log.Warn("evaluation request dropped: malformed", logger.String("key", d.Key), logger.Error(err))
		return nil
	}
	if errs := xhttp.ValidateStruct(ctx, &req); errs != nil {
		h.metrics.RecordError("consumer_validate")
		h.log.Warn("evaluation request dropped: invalid",
			logger.Strings("seeds", req.Keywords),
			logger.Any("errors", errs))
		return nil
	}

	start := time.Now()
	res, err := h.svc.Evaluate(ctx, req, nil)
	h.metrics.RecordLatency("consumer_evaluate", time.Since(start).Seconds())
	if err != nil {
		if models.IsValidation(err) {
			h.log.Warn("evaluation request dropped: rejected", logger.Strings("seeds", req.Keywords), logger.Error(err))
			return nil
		}
		h.metrics.RecordError("consumer_evaluate")
		return err
	}
	h.log.Info("evaluation request processed",
		logger.String("run_id", res.RunID),
		logger.Int("attempt", d.Attempt),
		logger.Int("niches", len(res.Niches)))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaEvaluationHandler)(nil)
