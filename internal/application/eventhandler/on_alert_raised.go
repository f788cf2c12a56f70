// Package eventhandler содержит обработчики доменных событий.
// Эти обработчики реализуют event-driven архитектуру и связывают
// различные части системы через асинхронные события.
//
// Философия: обработчики событий — это "реактивная" часть системы.
// Они реагируют на изменения когорты и запускают побочные эффекты,
// такие как отправка уведомлений кураторам или запись в журнал.
package eventhandler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ALERT RAISED HANDLER
// Обрабатывает событие появления алерта по когорте.
//
// Алерты — это сигнал для кураторов, а не для студентов: уведомление
// должно помогать вмешаться вовремя, не превращаясь в спам при каждом
// пересчёте популяции.
// ═══════════════════════════════════════════════════════════════════════════

// AlertNotifier доставляет алерт во внешний канал (почта кураторов,
// дежурный чат). Реализация живёт в infrastructure layer.
type AlertNotifier interface {
	Notify(ctx context.Context, alertType, message string, count int) error
}

// OnAlertRaisedHandler обрабатывает событие shared.EventAlertRaised.
// Логирует алерт и, если настроен notifier, пересылает его кураторам
// с учётом cooldown по типу алерта.
type OnAlertRaisedHandler struct {
	notifier AlertNotifier

	logger *slog.Logger
	config AlertRaisedConfig

	// lastNotified хранит время последнего уведомления по каждому
	// типу алерта. Защищает кураторов от дублей при частых пересчётах.
	mu           sync.Mutex
	lastNotified map[string]time.Time
}

// AlertRaisedConfig содержит конфигурацию обработчика.
type AlertRaisedConfig struct {
	// CooldownPeriod — минимальный интервал между уведомлениями
	// по одному и тому же типу алерта.
	CooldownPeriod time.Duration

	// NotifyTimeout — таймаут на доставку одного уведомления.
	NotifyTimeout time.Duration
}

// DefaultAlertRaisedConfig возвращает конфигурацию по умолчанию.
func DefaultAlertRaisedConfig() AlertRaisedConfig {
	return AlertRaisedConfig{
		CooldownPeriod: 30 * time.Minute,
		NotifyTimeout:  10 * time.Second,
	}
}

// NewOnAlertRaisedHandler создаёт новый обработчик алертов.
// notifier может быть nil — тогда обработчик только логирует.
func NewOnAlertRaisedHandler(
	notifier AlertNotifier,
	logger *slog.Logger,
	config AlertRaisedConfig,
) *OnAlertRaisedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnAlertRaisedHandler{
		notifier:     notifier,
		logger:       logger.With("handler", "on_alert_raised"),
		config:       config,
		lastNotified: make(map[string]time.Time),
	}
}

// Handle обрабатывает событие появления алерта.
// Соответствует сигнатуре shared.EventHandler.
func (h *OnAlertRaisedHandler) Handle(event shared.Event) error {
	alertEvent, ok := event.(*shared.AlertRaisedEvent)
	if !ok {
		h.logger.Warn("received non-AlertRaisedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("cohort alert raised",
		"alert_id", alertEvent.AlertID,
		"alert_type", alertEvent.AlertType,
		"count", alertEvent.Count,
		"message", alertEvent.Message,
	)

	if h.notifier == nil {
		return nil
	}

	if !h.shouldNotify(alertEvent.AlertType) {
		h.logger.Debug("skipping alert notification",
			"reason", "cooldown active",
			"alert_type", alertEvent.AlertType,
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.NotifyTimeout)
	defer cancel()

	if err := h.notifier.Notify(ctx, alertEvent.AlertType, alertEvent.Message, alertEvent.Count); err != nil {
		h.logger.Error("failed to deliver alert notification",
			"alert_type", alertEvent.AlertType,
			"error", err,
		)
		// Не возвращаем ошибку — алерт уже зафиксирован в логе,
		// повторная доставка произойдёт при следующем скане.
		return nil
	}

	h.markNotified(alertEvent.AlertType)

	h.logger.Debug("alert notification delivered",
		"alert_type", alertEvent.AlertType,
	)

	return nil
}

// shouldNotify проверяет, прошёл ли cooldown для данного типа алерта.
func (h *OnAlertRaisedHandler) shouldNotify(alertType string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	last, seen := h.lastNotified[alertType]
	if !seen {
		return true
	}
	return time.Since(last) >= h.config.CooldownPeriod
}

// markNotified фиксирует время последнего уведомления.
func (h *OnAlertRaisedHandler) markNotified(alertType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastNotified[alertType] = time.Now()
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnAlertRaisedHandler) EventType() shared.EventType {
	return shared.EventAlertRaised
}
