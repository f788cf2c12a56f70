package eventhandler

import (
	"log/slog"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON POPULATION INGESTED HANDLER
// Обрабатывает событие загрузки батча в популяцию.
//
// Высокая доля отклонённых записей — признак проблемы в источнике
// данных (сломанный экспорт, смена схемы). Обработчик поднимает
// warning раньше, чем это заметят на дашборде.
// ═══════════════════════════════════════════════════════════════════════════

// OnPopulationIngestedHandler обрабатывает событие shared.EventPopulationIngested.
// Логирует итог загрузки и предупреждает о высокой доле отклонённых записей.
type OnPopulationIngestedHandler struct {
	logger *slog.Logger
	config PopulationIngestedConfig
}

// PopulationIngestedConfig содержит конфигурацию обработчика.
type PopulationIngestedConfig struct {
	// RejectRateWarnThreshold — доля отклонённых записей [0..1],
	// начиная с которой загрузка логируется как warning.
	RejectRateWarnThreshold float64
}

// DefaultPopulationIngestedConfig возвращает конфигурацию по умолчанию.
func DefaultPopulationIngestedConfig() PopulationIngestedConfig {
	return PopulationIngestedConfig{
		RejectRateWarnThreshold: 0.10,
	}
}

// NewOnPopulationIngestedHandler создаёт новый обработчик загрузки популяции.
func NewOnPopulationIngestedHandler(
	logger *slog.Logger,
	config PopulationIngestedConfig,
) *OnPopulationIngestedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnPopulationIngestedHandler{
		logger: logger.With("handler", "on_population_ingested"),
		config: config,
	}
}

// Handle обрабатывает событие загрузки батча.
// Соответствует сигнатуре shared.EventHandler.
func (h *OnPopulationIngestedHandler) Handle(event shared.Event) error {
	ingestEvent, ok := event.(*shared.PopulationIngestedEvent)
	if !ok {
		h.logger.Warn("received non-PopulationIngestedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	rejectRate := 0.0
	if ingestEvent.Total > 0 {
		rejectRate = float64(ingestEvent.Rejected) / float64(ingestEvent.Total)
	}

	if rejectRate >= h.config.RejectRateWarnThreshold && ingestEvent.Rejected > 0 {
		h.logger.Warn("batch ingested with high reject rate",
			"batch_id", ingestEvent.BatchID,
			"source", ingestEvent.Source,
			"total", ingestEvent.Total,
			"ingested", ingestEvent.Ingested,
			"rejected", ingestEvent.Rejected,
			"reject_rate", rejectRate,
		)
		return nil
	}

	h.logger.Info("batch ingested",
		"batch_id", ingestEvent.BatchID,
		"source", ingestEvent.Source,
		"total", ingestEvent.Total,
		"ingested", ingestEvent.Ingested,
		"rejected", ingestEvent.Rejected,
	)

	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnPopulationIngestedHandler) EventType() shared.EventType {
	return shared.EventPopulationIngested
}
