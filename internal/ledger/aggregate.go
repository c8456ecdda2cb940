package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultRecentLimit is the length of the recent-transactions list.
const DefaultRecentLimit = 5

// Engine derives reports from transaction records. It never mutates its
// input and always recomputes from scratch, so equal inputs give equal
// results.
type Engine struct {
	cal         *Calendar
	recentLimit int
}

// NewEngine creates an engine that matches dates through cal.
func NewEngine(cal *Calendar, recentLimit int) *Engine {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Engine{cal: cal, recentLimit: recentLimit}
}

// Calendar returns the calendar the engine matches dates with.
func (e *Engine) Calendar() *Calendar {
	return e.cal
}

// Aggregate summarizes the records whose normalized date equals
// targetDateKey. An empty key keeps every record.
func (e *Engine) Aggregate(records []domain.TransactionRecord, targetDateKey string) *domain.AggregateResult {
	kept := make([]domain.TransactionRecord, 0, len(records))
	for _, r := range records {
		if targetDateKey != "" && e.cal.NormalizeDateKey(r.Date) != targetDateKey {
			continue
		}
		kept = append(kept, r)
	}

	res := e.summarize(kept)
	res.Date = targetDateKey
	return res
}

// AggregateRange summarizes the records dated between from and to, both
// calendar days and both inclusive. Records with unreadable dates are left
// out.
func (e *Engine) AggregateRange(records []domain.TransactionRecord, from, to time.Time) *domain.AggregateResult {
	from = startOfDay(from.In(e.cal.loc))
	to = startOfDay(to.In(e.cal.loc))

	kept := make([]domain.TransactionRecord, 0, len(records))
	for _, r := range records {
		day, ok := e.cal.KeyTime(e.cal.NormalizeDateKey(r.Date))
		if !ok || day.Before(from) || day.After(to) {
			continue
		}
		kept = append(kept, r)
	}

	res := e.summarize(kept)
	res.From = from.Format(DateKeyLayout)
	res.To = to.Format(DateKeyLayout)
	return res
}

func (e *Engine) summarize(kept []domain.TransactionRecord) *domain.AggregateResult {
	res := &domain.AggregateResult{
		TotalSales:    decimal.Zero,
		TotalTips:     decimal.Zero,
		CashTotal:     decimal.Zero,
		CardTotal:     decimal.Zero,
		WorkerStats:   make(map[string]*domain.WorkerStats),
		CategoryStats: make(map[string]*domain.CategoryStats),
		Entries:       kept,
	}

	for _, r := range kept {
		amount := nonNegative(r.Amount)

		res.TransactionCount++
		res.TotalSales = res.TotalSales.Add(amount)
		res.TotalTips = res.TotalTips.Add(nonNegative(r.Tip))

		worker := strings.TrimSpace(r.Worker)
		if worker == "" {
			worker = domain.UnknownWorker
		}
		ws, ok := res.WorkerStats[worker]
		if !ok {
			ws = &domain.WorkerStats{
				Total:        decimal.Zero,
				CashTotal:    decimal.Zero,
				CardTotal:    decimal.Zero,
				Transactions: []domain.TransactionRecord{},
			}
			res.WorkerStats[worker] = ws
		}
		ws.Total = ws.Total.Add(amount)
		ws.Count++
		ws.Transactions = append(ws.Transactions, r)

		switch r.PaymentMethod {
		case domain.PaymentCash:
			res.CashTotal = res.CashTotal.Add(amount)
			ws.CashTotal = ws.CashTotal.Add(amount)
		case domain.PaymentCard:
			res.CardTotal = res.CardTotal.Add(amount)
			ws.CardTotal = ws.CardTotal.Add(amount)
		}

		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = domain.UnknownCategory
		}
		cs, ok := res.CategoryStats[category]
		if !ok {
			cs = &domain.CategoryStats{Total: decimal.Zero}
			res.CategoryStats[category] = cs
		}
		cs.Total = cs.Total.Add(amount)
		cs.Count++
	}

	res.RecentTransactions = e.recent(kept)
	return res
}

// recent orders by createdAt, falling back to timestamp, newest first.
// Records with neither readable sort as oldest; ties keep input order.
func (e *Engine) recent(kept []domain.TransactionRecord) []domain.TransactionRecord {
	type stamped struct {
		rec domain.TransactionRecord
		at  time.Time
	}
	sorted := make([]stamped, len(kept))
	for i, r := range kept {
		sorted[i] = stamped{rec: r, at: e.orderingTime(r)}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].at.After(sorted[j].at)
	})

	n := min(e.recentLimit, len(sorted))
	out := make([]domain.TransactionRecord, n)
	for i := range n {
		out[i] = sorted[i].rec
	}
	return out
}

func (e *Engine) orderingTime(r domain.TransactionRecord) time.Time {
	if t, ok := e.cal.ParseTimestamp(r.CreatedAt); ok {
		return t
	}
	if t, ok := e.cal.ParseTimestamp(r.Timestamp); ok {
		return t
	}
	return time.Time{}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
