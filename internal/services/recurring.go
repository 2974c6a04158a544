package services

import (
	"context"
	"time"

	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/storage"
)

// RecurringLister is the slice of storage the materializer needs.
type RecurringLister interface {
	ListRecurringTransactions(ctx context.Context) ([]storage.TransactionRow, error)
}

// transactionCreator is satisfied by TransactionService, so materialized
// expenses run through the same validation and goal tracking as manual ones.
type transactionCreator interface {
	Create(ctx context.Context, in TransactionInput) (storage.TransactionRow, error)
}

// duenessChecker decides whether a series needs a new entry given the date
// of its newest entry. One implementation per cadence.
type duenessChecker interface {
	IsDue(last, now time.Time) bool
}

type weeklyChecker struct{}

func (weeklyChecker) IsDue(last, now time.Time) bool {
	return now.Sub(last).Hours()/24 >= 7
}

type monthlyChecker struct{}

// IsDue waits for a new month and for the series' day of month, clamped to
// shorter months so a day-31 series still fires in February.
func (monthlyChecker) IsDue(last, now time.Time) bool {
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return false
	}
	targetDay := last.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return now.Day() >= targetDay
}

type yearlyChecker struct{}

func (yearlyChecker) IsDue(last, now time.Time) bool {
	if last.Year() == now.Year() {
		return false
	}
	if now.Month() != last.Month() {
		return now.Month() > last.Month()
	}
	targetDay := last.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return now.Day() >= targetDay
}

func checkerFor(r core.Recurrence) duenessChecker {
	switch r {
	case core.Weekly:
		return weeklyChecker{}
	case core.Yearly:
		return yearlyChecker{}
	default:
		return monthlyChecker{}
	}
}

// seriesKey identifies one recurring series across its materialized entries.
// Two entries with the same identity belong to the same series, so only the
// newest of them drives dueness.
type seriesKey struct {
	Type        core.TransactionType
	Category    core.Category
	Description string
	AmountCents int64
	Member      core.Member
	Recurrence  core.Recurrence
}

// RecurringProcessor turns recurring entries into fresh ledger rows when
// their cadence comes due. Every materialized row keeps its cadence, so it
// becomes the new head of its series.
type RecurringProcessor struct {
	store   RecurringLister
	creator transactionCreator
	logger  *log.Logger
}

func NewRecurringProcessor(store RecurringLister, creator transactionCreator, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		store:   store,
		creator: creator,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// ProcessDue materializes one entry for every recurring series whose
// cadence has elapsed, returning how many were created. A failing series is
// logged and skipped; it gets retried on the next run.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	rows, err := p.store.ListRecurringTransactions(ctx)
	if err != nil {
		return 0, err
	}

	// Rows arrive newest first, so the first row seen per series is its head.
	heads := make(map[seriesKey]storage.TransactionRow)
	var order []seriesKey
	for _, row := range rows {
		if row.Recurs == nil {
			continue
		}
		key := seriesKey{
			Type:        row.Type,
			Category:    row.Category,
			Description: row.Description,
			AmountCents: row.Amount.Cents,
			Member:      row.Member,
			Recurrence:  *row.Recurs,
		}
		if _, seen := heads[key]; seen {
			continue
		}
		heads[key] = row
		order = append(order, key)
	}

	created := 0
	for _, key := range order {
		head := heads[key]
		last, err := time.Parse("2006-01-02", head.Date.String())
		if err != nil {
			p.logger.ErrorContext(ctx, "Unparseable date on recurring entry",
				log.FieldTransactionID, head.ID, log.FieldError, err)
			continue
		}
		if !checkerFor(key.Recurrence).IsDue(last, now) {
			continue
		}

		row, err := p.creator.Create(ctx, TransactionInput{
			Type:        head.Type,
			Category:    head.Category,
			Description: head.Description,
			Amount:      head.Amount,
			Date:        core.Date(now.Format("2006-01-02")),
			Member:      head.Member,
			Tags:        head.Tags,
			AccountID:   head.AccountID,
			IsRecurring: true,
			Recurrence:  key.Recurrence,
		})
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to materialize recurring entry",
				log.FieldTransactionID, head.ID,
				log.FieldCategory, head.Category,
				log.FieldError, err)
			continue
		}

		created++
		p.logger.InfoContext(ctx, "Materialized recurring entry",
			log.FieldTransactionID, row.ID,
			log.FieldCategory, row.Category,
			log.FieldAmountCents, row.Amount.Cents,
			"recurrence", key.Recurrence)
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		"series", len(heads), "created", created)
	return created, nil
}
