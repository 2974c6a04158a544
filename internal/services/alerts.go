package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/storage"
)

// Alert types. Goal tracking emits warning and danger; notify accepts the
// first four and falls back to info; insight is reserved for stored
// analysis texts.
const (
	AlertInfo    = "info"
	AlertSuccess = "success"
	AlertWarning = "warning"
	AlertDanger  = "danger"
	AlertInsight = "insight"
)

// goalAlertPayload is the structured payload attached to goal alerts.
type goalAlertPayload struct {
	Category core.Category `json:"category"`
	Pct      int           `json:"pct"`
	Limit    core.Money    `json:"limit"`
	Spent    core.Money    `json:"spent"`
}

// AlertService creates and lists alerts and watches category goals.
type AlertService struct {
	store      AlertStore
	goals      GoalStore
	aggregates AggregateStore
	publisher  AlertPublisher
	logger     *log.Logger
}

func NewAlertService(store AlertStore, goals GoalStore, aggregates AggregateStore, publisher AlertPublisher, logger *log.Logger) *AlertService {
	return &AlertService{
		store:      store,
		goals:      goals,
		aggregates: aggregates,
		publisher:  publisher,
		logger:     logger.WithComponent(log.ComponentAlerts),
	}
}

// Create validates and stores an alert, then publishes the event.
func (s *AlertService) Create(ctx context.Context, typ, message string, data json.RawMessage) (core.Alert, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return core.Alert{}, core.ErrEmptyMessage
	}
	if typ == "" {
		typ = AlertInfo
	}

	alert, err := s.store.InsertAlert(ctx, typ, message, data)
	if err != nil {
		return core.Alert{}, fmt.Errorf("create alert: %w", err)
	}
	s.publish(ctx, alert)
	return alert, nil
}

// Notify builds an alert from an external notification. An unknown type
// falls back to info; a title is folded into the message.
func (s *AlertService) Notify(ctx context.Context, title, message, typ string, data json.RawMessage) (core.Alert, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return core.Alert{}, core.ErrEmptyMessage
	}

	switch typ {
	case AlertInfo, AlertSuccess, AlertWarning, AlertDanger:
	default:
		typ = AlertInfo
	}

	if title = strings.TrimSpace(title); title != "" {
		message = title + ": " + message
	}
	return s.Create(ctx, typ, message, data)
}

// CreateInsight stores an analysis text as an insight alert, tagged with
// the month it covers.
func (s *AlertService) CreateInsight(ctx context.Context, text string, month core.Month) (core.Alert, error) {
	data, err := json.Marshal(map[string]core.Month{"month": month})
	if err != nil {
		return core.Alert{}, fmt.Errorf("encode insight payload: %w", err)
	}
	return s.Create(ctx, AlertInsight, text, data)
}

// LatestInsight returns the newest insight alert, storage.ErrNotFound when
// none was ever stored.
func (s *AlertService) LatestInsight(ctx context.Context) (core.Alert, error) {
	return s.store.LatestAlertByType(ctx, AlertInsight)
}

func (s *AlertService) List(ctx context.Context) ([]core.Alert, error) {
	return s.store.ListAlerts(ctx)
}

// MarkRead flags one alert as read and returns the updated row.
func (s *AlertService) MarkRead(ctx context.Context, id int64) (core.Alert, error) {
	if err := s.store.MarkAlertRead(ctx, id); err != nil {
		return core.Alert{}, err
	}
	return s.store.GetAlert(ctx, id)
}

func (s *AlertService) MarkAllRead(ctx context.Context) error {
	return s.store.MarkAllAlertsRead(ctx)
}

// EvaluateGoalAfterExpense checks the category's goal against its
// current-month spend and emits at most one alert: danger at or past the
// limit, warning from 80% on. Every failure here is logged and swallowed;
// the expense write this runs after must never be rolled back by an
// advisory alert.
func (s *AlertService) EvaluateGoalAfterExpense(ctx context.Context, category core.Category, month core.Month) {
	goal, err := s.goals.GoalByCategory(ctx, category)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Goal lookup failed", log.FieldCategory, category, log.FieldError, err)
		return
	}

	spent, err := s.aggregates.CategorySpent(ctx, category, month)
	if err != nil {
		s.logger.ErrorContext(ctx, "Category spend query failed", log.FieldCategory, category, log.FieldError, err)
		return
	}

	pct, err := core.GoalPct(spent, goal.MonthlyLimit.Cents)
	if err != nil {
		s.logger.ErrorContext(ctx, "Goal percentage failed", log.FieldCategory, category, log.FieldError, err)
		return
	}

	var typ, message string
	switch core.StatusForPct(pct) {
	case core.GoalExceeded:
		typ = AlertDanger
		message = fmt.Sprintf("Meta de %s estourada! %d%% do limite usado.", category, pct)
	case core.GoalWarning:
		typ = AlertWarning
		message = fmt.Sprintf("Meta de %s em %d%% do limite.", category, pct)
	default:
		return
	}

	data, err := json.Marshal(goalAlertPayload{
		Category: category,
		Pct:      pct,
		Limit:    goal.MonthlyLimit,
		Spent:    core.Money{Cents: spent},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Alert payload encode failed", log.FieldCategory, category, log.FieldError, err)
		return
	}

	alert, err := s.store.InsertAlert(ctx, typ, message, data)
	if err != nil {
		s.logger.ErrorContext(ctx, "Goal alert insert failed", log.FieldCategory, category, log.FieldError, err)
		return
	}

	s.logger.InfoContext(ctx, "Goal alert emitted",
		log.FieldCategory, category,
		log.FieldGoalPct, pct,
		log.FieldAlertType, typ)
	s.publish(ctx, alert)
}

// publish pushes the alert event, best effort. A nil publisher means the
// bus is not configured.
func (s *AlertService) publish(ctx context.Context, alert core.Alert) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAlertCreated(ctx, alert.ID, alert.Type, alert.Message); err != nil {
		s.logger.WarnContext(ctx, "Alert event publish failed",
			log.FieldAlertID, alert.ID, log.FieldError, err)
	}
}
