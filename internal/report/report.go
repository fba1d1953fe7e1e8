// Package report is the aggregation engine: pure functions over in-memory
// snapshots of the ledger. Nothing here touches storage; callers pass the
// current collections and get totals, groupings, and projections back.
package report

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Month selects a calendar month. The zero value means "the current month".
type Month struct {
	Year  int
	Month int // 1-12
}

// CurrentMonth returns the selector for the running calendar month.
func CurrentMonth() Month {
	now := time.Now()
	return Month{Year: now.Year(), Month: int(now.Month())}
}

func (m Month) orCurrent() Month {
	if m.Year == 0 || m.Month == 0 {
		return CurrentMonth()
	}
	return m
}

// Contains reports whether the date falls inside the selected month.
// Comparison is on calendar month and year, not a rolling window.
func (m Month) Contains(d core.Date) bool {
	sel := m.orCurrent()
	return d.Year() == sel.Year && d.Month() == sel.Month
}

// FilterExpenses keeps the expenses dated inside the selected month.
func FilterExpenses(items []core.Expense, m Month) []core.Expense {
	var out []core.Expense
	for _, e := range items {
		if m.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// FilterIncomes keeps the incomes dated inside the selected month.
func FilterIncomes(items []core.Income, m Month) []core.Income {
	var out []core.Income
	for _, in := range items {
		if m.Contains(in.Date) {
			out = append(out, in)
		}
	}
	return out
}

// TotalExpenses sums expense values for the selected month.
func TotalExpenses(items []core.Expense, m Month) core.Money {
	var total core.Money
	for _, e := range FilterExpenses(items, m) {
		total = total.Add(e.Value)
	}
	return total
}

// TotalIncomes sums income values for the selected month.
func TotalIncomes(items []core.Income, m Month) core.Money {
	var total core.Money
	for _, in := range FilterIncomes(items, m) {
		total = total.Add(in.Value)
	}
	return total
}

// Balance is incomes minus expenses for the selected month.
func Balance(expenses []core.Expense, incomes []core.Income, m Month) core.Money {
	return TotalIncomes(incomes, m).Sub(TotalExpenses(expenses, m))
}

// ExpensesByCategory groups month expenses by category. The result is
// pre-seeded with every category in categories at zero so consumers always
// see a stable key set, e.g. for charting.
func ExpensesByCategory(items []core.Expense, categories []core.Category, m Month) map[core.Category]core.Money {
	result := make(map[core.Category]core.Money, len(categories))
	for _, c := range categories {
		result[c] = core.Money{}
	}
	for _, e := range FilterExpenses(items, m) {
		result[e.Category] = result[e.Category].Add(e.Value)
	}
	return result
}

// ExpensesByUser groups month expenses by owning user. Unlike the category
// grouping the map is not pre-seeded; only users with at least one record in
// range appear.
func ExpensesByUser(items []core.Expense, m Month) map[string]core.Money {
	result := make(map[string]core.Money)
	for _, e := range FilterExpenses(items, m) {
		result[e.UserID] = result[e.UserID].Add(e.Value)
	}
	return result
}

// IncomesByUser groups month incomes by owning user; not pre-seeded.
func IncomesByUser(items []core.Income, m Month) map[string]core.Money {
	result := make(map[string]core.Money)
	for _, in := range FilterIncomes(items, m) {
		result[in.UserID] = result[in.UserID].Add(in.Value)
	}
	return result
}

// ExpensesByPaymentMethod groups month expenses by payment method,
// pre-seeded with every known method at zero.
func ExpensesByPaymentMethod(items []core.Expense, m Month) map[core.PaymentMethod]core.Money {
	result := make(map[core.PaymentMethod]core.Money, len(core.PaymentMethods))
	for _, pm := range core.PaymentMethods {
		result[pm] = core.Money{}
	}
	for _, e := range FilterExpenses(items, m) {
		result[e.PaymentMethod] = result[e.PaymentMethod].Add(e.Value)
	}
	return result
}

// LimitPercentage is the spent-over-limit ratio as a percentage, clamped at
// 100 for display. A missing or zero limit reads as 0, never a division.
func LimitPercentage(spent, limit core.Money) float64 {
	if limit.Cents <= 0 {
		return 0
	}
	pct := float64(spent.Cents) / float64(limit.Cents) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// FutureExpenses projects spending after now: stored installment rows dated
// strictly in the future, plus `months` synthetic rows per fixed expense,
// one per month offset starting at 0. Synthetic rows carry a deterministic
// id, the system user, and a debit payment method; they are never persisted.
func FutureExpenses(expenses []core.Expense, fixed []core.FixedExpense, months int, now time.Time) []core.Expense {
	var future []core.Expense

	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	for _, e := range expenses {
		if e.PaymentMethod == core.CreditCard && e.InstallmentNumber > 0 && e.Installments > 0 && e.Date.After(today.Time) {
			future = append(future, e)
		}
	}

	for _, fe := range fixed {
		for i := 0; i < months; i++ {
			future = append(future, ProjectFixedExpense(fe, i, now))
		}
	}

	return future
}

// ProjectFixedExpense builds the synthetic expense row for a fixed expense at
// the given month offset from now. The day of month anchors to DueDay when
// the fixed expense has one, clamped to the target month's last day;
// otherwise today's day is kept.
func ProjectFixedExpense(fe core.FixedExpense, offset int, now time.Time) core.Expense {
	year := now.Year()
	month := int(now.Month()) - 1 + offset
	year += month / 12
	month = month%12 + 1

	day := now.Day()
	if fe.DueDay > 0 {
		day = fe.DueDay
	}
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}

	return core.Expense{
		ID:            fmt.Sprintf("projection-%s-%d", fe.ID, offset),
		Value:         fe.Value,
		PaymentMethod: core.Debit,
		Date:          core.NewDate(year, month, day),
		Category:      fe.Category,
		Description:   fmt.Sprintf("%s (Despesa fixa)", fe.Name),
		UserID:        core.SystemUserID,
	}
}

func lastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
