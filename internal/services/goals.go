package services

import (
	"context"
	"fmt"

	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/storage"
)

// GoalService manages category goals and the monthly budget cap.
type GoalService struct {
	store  GoalStore
	logger *log.Logger
}

func NewGoalService(store GoalStore, logger *log.Logger) *GoalService {
	return &GoalService{
		store:  store,
		logger: logger.WithComponent(log.ComponentGoals),
	}
}

// Upsert creates or overwrites the goal for a category.
func (s *GoalService) Upsert(ctx context.Context, category core.Category, limit core.Money) (core.Goal, error) {
	goal := core.Goal{Category: category, MonthlyLimit: limit}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}
	out, err := s.store.UpsertGoal(ctx, category, limit.Cents)
	if err != nil {
		return core.Goal{}, fmt.Errorf("upsert goal: %w", err)
	}
	s.logger.InfoContext(ctx, "Goal saved",
		log.FieldCategory, category,
		log.FieldAmountCents, limit.Cents)
	return out, nil
}

func (s *GoalService) List(ctx context.Context) ([]core.Goal, error) {
	return s.store.ListGoals(ctx)
}

// GoalUpdate is a partial goal update; present fields must be legal.
type GoalUpdate struct {
	Category     *core.Category `json:"category"`
	MonthlyLimit *core.Money    `json:"monthly_limit"`
}

func (s *GoalService) Update(ctx context.Context, id int64, u GoalUpdate) (core.Goal, error) {
	var p storage.GoalPatch
	if u.Category != nil {
		if !u.Category.Valid() {
			return core.Goal{}, core.ErrInvalidCategory
		}
		p.Category = u.Category
	}
	if u.MonthlyLimit != nil {
		if u.MonthlyLimit.Cents <= 0 {
			return core.Goal{}, core.ErrInvalidLimit
		}
		p.MonthlyLimit = u.MonthlyLimit
	}
	return s.store.UpdateGoal(ctx, id, p)
}

func (s *GoalService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteGoal(ctx, id)
}

// UpsertBudget creates or overwrites the overall cap for a month.
func (s *GoalService) UpsertBudget(ctx context.Context, month core.Month, limit core.Money) (core.Budget, error) {
	budget := core.Budget{Month: month, TotalLimit: limit}
	if err := budget.Validate(); err != nil {
		return core.Budget{}, err
	}
	out, err := s.store.UpsertBudget(ctx, month, limit.Cents)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget saved",
		log.FieldMonth, month,
		log.FieldAmountCents, limit.Cents)
	return out, nil
}

// Budget fetches the cap for one month, storage.ErrNotFound when unset.
func (s *GoalService) Budget(ctx context.Context, month core.Month) (core.Budget, error) {
	if err := month.Validate(); err != nil {
		return core.Budget{}, err
	}
	return s.store.GetBudget(ctx, month)
}
