// Package alerts evaluates spending limits and upcoming fixed expenses and
// turns breaches into notifications.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/report"
	"fintrack/internal/settings"
)

// Notifier publishes a notification to whatever side channel is configured.
// The AMQP client satisfies it in production.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string) error
}

type Checker struct {
	ledger   *ledger.Ledger
	settings *settings.Service
	notifier Notifier

	warnPercent   float64
	dueSoonWindow int

	// now is swapped in tests to pin the calendar.
	now func() time.Time
}

func NewChecker(l *ledger.Ledger, s *settings.Service, n Notifier, warnPercent float64, dueSoonWindowDays int) *Checker {
	return &Checker{
		ledger:        l,
		settings:      s,
		notifier:      n,
		warnPercent:   warnPercent,
		dueSoonWindow: dueSoonWindowDays,
		now:           time.Now,
	}
}

// CheckUser runs every check for one user. Users who opted out of
// notifications are skipped entirely.
func (c *Checker) CheckUser(ctx context.Context, userID string) error {
	us, err := c.settings.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !us.ReceiveNotifications {
		return nil
	}

	if err := c.CheckLimits(ctx, userID); err != nil {
		return err
	}
	return c.CheckDueFixedExpenses(ctx, userID)
}

// CheckLimits compares this month's spending against each category limit and
// the total limit. At or past the limit notifies "exceeded"; at or past the
// warn threshold notifies "warning".
func (c *Checker) CheckLimits(ctx context.Context, userID string) error {
	us, err := c.settings.Get(ctx, userID)
	if err != nil {
		return err
	}
	if len(us.CategoryLimits) == 0 && us.TotalLimit.Cents <= 0 {
		return nil
	}

	expenses, err := c.ledger.Expenses(ctx)
	if err != nil {
		return err
	}
	var mine []core.Expense
	for _, e := range expenses {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}

	now := c.now()
	month := report.Month{Year: now.Year(), Month: int(now.Month())}

	for _, cl := range us.CategoryLimits {
		spent := core.Money{}
		for _, e := range report.FilterExpenses(mine, month) {
			if e.Category == cl.Category {
				spent = spent.Add(e.Value)
			}
		}
		if err := c.notifyLimit(ctx, userID, string(cl.Category), spent, cl.Limit); err != nil {
			return err
		}
	}

	if us.TotalLimit.Cents > 0 {
		total := report.TotalExpenses(mine, month)
		if err := c.notifyLimit(ctx, userID, "total", total, us.TotalLimit); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) notifyLimit(ctx context.Context, userID, label string, spent, limit core.Money) error {
	if limit.Cents <= 0 {
		return nil
	}
	pct := float64(spent.Cents) / float64(limit.Cents) * 100

	switch {
	case pct >= 100:
		title := "Limite excedido"
		body := fmt.Sprintf("Você gastou %s de um limite de %s em %s este mês.", spent, limit, label)
		return c.notify(ctx, userID, title, body)
	case pct >= c.warnPercent:
		title := "Limite quase atingido"
		body := fmt.Sprintf("Você já usou %.0f%% do limite de %s em %s este mês.", pct, limit, label)
		return c.notify(ctx, userID, title, body)
	}
	return nil
}

// CheckDueFixedExpenses notifies about fixed expenses whose due day falls
// within the configured window ahead of today, this month wrapping into the
// next.
func (c *Checker) CheckDueFixedExpenses(ctx context.Context, userID string) error {
	fixed, err := c.ledger.FixedExpenses(ctx)
	if err != nil {
		return err
	}

	today := c.now()
	for _, fe := range fixed {
		if fe.UserID != userID || fe.DueDay == 0 {
			continue
		}
		days, ok := daysUntilDue(today, fe.DueDay)
		if !ok || days > c.dueSoonWindow {
			continue
		}

		var body string
		if days == 0 {
			body = fmt.Sprintf("%s (%s) vence hoje.", fe.Name, fe.Value)
		} else {
			body = fmt.Sprintf("%s (%s) vence em %d dia(s).", fe.Name, fe.Value, days)
		}
		if err := c.notify(ctx, userID, "Despesa fixa a vencer", body); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) notify(ctx context.Context, userID, title, body string) error {
	if c.notifier == nil {
		slog.InfoContext(ctx, "Notifier not configured, alert dropped",
			"user_id", userID, "title", title)
		return nil
	}
	return c.notifier.Notify(ctx, userID, title, body)
}

// daysUntilDue returns how many days from today until the next occurrence of
// dueDay. Due days past this month's end roll into next month. The second
// return is false for days that can never occur soon (already passed this
// month and farther than a month away is impossible, so it is always true
// except for invalid input).
func daysUntilDue(today time.Time, dueDay int) (int, bool) {
	if dueDay < 1 || dueDay > 31 {
		return 0, false
	}

	year, month, day := today.Date()
	lastThisMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, today.Location()).Day()

	if dueDay >= day && dueDay <= lastThisMonth {
		return dueDay - day, true
	}

	// next month's occurrence, clamped to its last day
	next := time.Date(year, month+1, 1, 0, 0, 0, 0, today.Location())
	lastNext := time.Date(next.Year(), next.Month()+1, 0, 0, 0, 0, 0, today.Location()).Day()
	d := dueDay
	if d > lastNext {
		d = lastNext
	}
	due := time.Date(next.Year(), next.Month(), d, 0, 0, 0, 0, today.Location())
	start := time.Date(year, month, day, 0, 0, 0, 0, today.Location())
	return int(due.Sub(start).Hours() / 24), true
}
