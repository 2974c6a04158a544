package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/storage"
)

// CategoryAmount is one expense category's share of a month.
type CategoryAmount struct {
	Category core.Category `json:"category"`
	Total    core.Money    `json:"total"`
	Count    int           `json:"count"`
}

// MonthSummary is the compact dashboard view of one month against the one
// before it.
type MonthSummary struct {
	Income        core.Money       `json:"income"`
	Expenses      core.Money       `json:"expenses"`
	Balance       core.Money       `json:"balance"`
	ByCategory    []CategoryAmount `json:"byCategory"`
	PreviousMonth PreviousTotals   `json:"previousMonth"`
	// Variation is the whole-percent change of expenses against the
	// previous month, nil when there is no previous spend to compare to.
	Variation *int `json:"variation"`
}

type PreviousTotals struct {
	Month    core.Month `json:"month,omitempty"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
	Balance  core.Money `json:"balance,omitempty"`
}

// CategoryGrowth is one category whose spend grew against the previous
// month. Categories with no previous spend are excluded rather than
// reported as infinite growth.
type CategoryGrowth struct {
	Category core.Category `json:"category"`
	Current  core.Money    `json:"current"`
	Previous core.Money    `json:"previous"`
	Growth   float64       `json:"growth"`
}

// GoalStatus is one goal's consumption within the examined month.
type GoalStatus struct {
	Category core.Category   `json:"category"`
	Limit    core.Money      `json:"limit"`
	Spent    core.Money      `json:"spent"`
	Pct      int             `json:"pct"`
	Status   core.GoalStatus `json:"status"`
}

type RecurringSummary struct {
	Count int        `json:"count"`
	Total core.Money `json:"total"`
}

type LatestInsight struct {
	Text string    `json:"text"`
	Date time.Time `json:"date"`
}

// MonthInsights is the full analysis bundle for one month.
type MonthInsights struct {
	Month         core.Month       `json:"month"`
	Income        core.Money       `json:"income"`
	Expenses      core.Money       `json:"expenses"`
	Balance       core.Money       `json:"balance"`
	PreviousMonth PreviousTotals   `json:"previousMonth"`
	// ExpenseVariation carries one decimal place, nil when the previous
	// month had no expenses.
	ExpenseVariation *float64         `json:"expenseVariation"`
	ByCategory       []CategoryAmount `json:"byCategory"`
	CategoryGrowth   []CategoryGrowth `json:"categoryGrowth"`
	GoalsStatus      []GoalStatus     `json:"goalsStatus"`
	Recurring        RecurringSummary `json:"recurring"`
	LatestInsight    *LatestInsight   `json:"latestInsight"`
}

// InsightService computes the monthly aggregate views. Its queries run
// without a shared snapshot; a write landing between two of them can skew
// one read against another, which is acceptable for a dashboard.
type InsightService struct {
	aggregates AggregateStore
	goals      GoalStore
	alerts     AlertStore
	logger     *log.Logger
}

func NewInsightService(aggregates AggregateStore, goals GoalStore, alerts AlertStore, logger *log.Logger) *InsightService {
	return &InsightService{
		aggregates: aggregates,
		goals:      goals,
		alerts:     alerts,
		logger:     logger.WithComponent(log.ComponentInsights),
	}
}

// Summary computes the dashboard totals for a month (current when empty).
func (s *InsightService) Summary(ctx context.Context, rawMonth string) (MonthSummary, error) {
	month, err := core.ResolveMonth(rawMonth)
	if err != nil {
		return MonthSummary{}, err
	}
	prev := month.Prev()

	var cur, before storage.MonthTotals
	var byCategory []storage.CategoryTotal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = s.aggregates.MonthTotals(gctx, month)
		return err
	})
	g.Go(func() (err error) {
		before, err = s.aggregates.MonthTotals(gctx, prev)
		return err
	})
	g.Go(func() (err error) {
		byCategory, err = s.aggregates.ExpensesByCategory(gctx, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return MonthSummary{}, fmt.Errorf("summary %s: %w", month, err)
	}

	out := MonthSummary{
		Income:     core.Money{Cents: cur.IncomeCents},
		Expenses:   core.Money{Cents: cur.ExpenseCents},
		Balance:    core.Money{Cents: cur.IncomeCents - cur.ExpenseCents},
		ByCategory: toCategoryAmounts(byCategory),
		PreviousMonth: PreviousTotals{
			Income:   core.Money{Cents: before.IncomeCents},
			Expenses: core.Money{Cents: before.ExpenseCents},
			Balance:  core.Money{Cents: before.IncomeCents - before.ExpenseCents},
		},
	}
	if before.ExpenseCents > 0 {
		v := int(math.Round(expenseChangePct(cur.ExpenseCents, before.ExpenseCents)))
		out.Variation = &v
	}
	return out, nil
}

// Insights computes the full analysis bundle for a month (current when
// empty). The independent reads fan out concurrently.
func (s *InsightService) Insights(ctx context.Context, rawMonth string) (MonthInsights, error) {
	month, err := core.ResolveMonth(rawMonth)
	if err != nil {
		return MonthInsights{}, err
	}
	prev := month.Prev()

	var (
		cur, before     storage.MonthTotals
		byCategory      []storage.CategoryTotal
		prevByCategory  []storage.CategoryTotal
		goals           []core.Goal
		recurring       storage.RecurringTotals
		latest          core.Alert
		latestAvailable bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = s.aggregates.MonthTotals(gctx, month)
		return err
	})
	g.Go(func() (err error) {
		before, err = s.aggregates.MonthTotals(gctx, prev)
		return err
	})
	g.Go(func() (err error) {
		byCategory, err = s.aggregates.ExpensesByCategory(gctx, month)
		return err
	})
	g.Go(func() (err error) {
		prevByCategory, err = s.aggregates.ExpensesByCategory(gctx, prev)
		return err
	})
	g.Go(func() (err error) {
		goals, err = s.goals.ListGoals(gctx)
		return err
	})
	g.Go(func() (err error) {
		recurring, err = s.aggregates.RecurringExpenseTotals(gctx)
		return err
	})
	g.Go(func() error {
		a, err := s.alerts.LatestAlertByType(gctx, AlertInsight)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		latest, latestAvailable = a, true
		return nil
	})
	if err := g.Wait(); err != nil {
		return MonthInsights{}, fmt.Errorf("insights %s: %w", month, err)
	}

	goalsStatus, err := s.goalsStatus(ctx, goals, month)
	if err != nil {
		return MonthInsights{}, fmt.Errorf("insights %s: %w", month, err)
	}

	out := MonthInsights{
		Month:    month,
		Income:   core.Money{Cents: cur.IncomeCents},
		Expenses: core.Money{Cents: cur.ExpenseCents},
		Balance:  core.Money{Cents: cur.IncomeCents - cur.ExpenseCents},
		PreviousMonth: PreviousTotals{
			Month:    prev,
			Income:   core.Money{Cents: before.IncomeCents},
			Expenses: core.Money{Cents: before.ExpenseCents},
		},
		ByCategory:     toCategoryAmounts(byCategory),
		CategoryGrowth: growthRanking(byCategory, prevByCategory),
		GoalsStatus:    goalsStatus,
		Recurring: RecurringSummary{
			Count: recurring.Count,
			Total: core.Money{Cents: recurring.TotalCents},
		},
	}
	if before.ExpenseCents > 0 {
		v := math.Round(expenseChangePct(cur.ExpenseCents, before.ExpenseCents)*10) / 10
		out.ExpenseVariation = &v
	}
	if latestAvailable {
		out.LatestInsight = &LatestInsight{Text: latest.Message, Date: latest.CreatedAt}
	}
	return out, nil
}

// goalsStatus resolves each goal's spend in the month sequentially; goal
// counts are small.
func (s *InsightService) goalsStatus(ctx context.Context, goals []core.Goal, month core.Month) ([]GoalStatus, error) {
	out := make([]GoalStatus, 0, len(goals))
	for _, goal := range goals {
		spent, err := s.aggregates.CategorySpent(ctx, goal.Category, month)
		if err != nil {
			return nil, fmt.Errorf("goal spend %s: %w", goal.Category, err)
		}
		pct, err := core.GoalPct(spent, goal.MonthlyLimit.Cents)
		if err != nil {
			return nil, fmt.Errorf("goal pct %s: %w", goal.Category, err)
		}
		out = append(out, GoalStatus{
			Category: goal.Category,
			Limit:    goal.MonthlyLimit,
			Spent:    core.Money{Cents: spent},
			Pct:      pct,
			Status:   core.StatusForPct(pct),
		})
	}
	return out, nil
}

func expenseChangePct(cur, prev int64) float64 {
	return (float64(cur) - float64(prev)) / float64(prev) * 100
}

func toCategoryAmounts(totals []storage.CategoryTotal) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(totals))
	for _, t := range totals {
		out = append(out, CategoryAmount{
			Category: t.Category,
			Total:    core.Money{Cents: t.TotalCents},
			Count:    t.Count,
		})
	}
	return out
}

// growthRanking ranks the categories whose spend grew against the previous
// month and keeps the top three. A category absent from the previous month
// has no meaningful ratio and is skipped.
func growthRanking(cur, prev []storage.CategoryTotal) []CategoryGrowth {
	prevByCat := make(map[core.Category]int64, len(prev))
	for _, p := range prev {
		prevByCat[p.Category] = p.TotalCents
	}

	out := make([]CategoryGrowth, 0, len(cur))
	for _, c := range cur {
		prevCents, ok := prevByCat[c.Category]
		if !ok || prevCents <= 0 {
			continue
		}
		growth := expenseChangePct(c.TotalCents, prevCents)
		if growth <= 0 {
			continue
		}
		out = append(out, CategoryGrowth{
			Category: c.Category,
			Current:  core.Money{Cents: c.TotalCents},
			Previous: core.Money{Cents: prevCents},
			Growth:   math.Round(growth*10) / 10,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Growth > out[j].Growth })
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}
