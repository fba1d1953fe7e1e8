package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

type categoryAmount struct {
	Category   core.Category `json:"category"`
	Spent      core.Money    `json:"spent"`
	Limit      *core.Money   `json:"limit,omitempty"`
	LimitUsage *float64      `json:"limitUsage,omitempty"`
}

type monthSummary struct {
	Year            int                               `json:"year"`
	Month           int                               `json:"month"`
	TotalExpenses   core.Money                        `json:"totalExpenses"`
	TotalIncomes    core.Money                        `json:"totalIncomes"`
	Balance         core.Money                        `json:"balance"`
	ByCategory      []categoryAmount                  `json:"byCategory"`
	ByPaymentMethod map[core.PaymentMethod]core.Money `json:"byPaymentMethod"`
	TotalLimit      *core.Money                       `json:"totalLimit,omitempty"`
	TotalLimitUsage *float64                          `json:"totalLimitUsage,omitempty"`
}

func summaryCacheKey(userID string, year, month int) string {
	return fmt.Sprintf("summary:%s:%04d-%02d", userID, year, month)
}

// invalidateSummaries drops every cached month for the user after a ledger
// mutation.
func (s *Server) invalidateSummaries(userID string) {
	s.summaryCache.DeletePrefix("summary:" + userID + ":")
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request, user core.User) {
	year, month := parseYearMonth(r)

	key := summaryCacheKey(user.ID, year, month)
	if cached, ok := s.summaryCache.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.buildMonthSummary(r, user, year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.summaryCache.Set(key, summary)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) buildMonthSummary(r *http.Request, user core.User, year, month int) (monthSummary, error) {
	ctx := r.Context()

	expenses, err := s.ledger.Expenses(ctx)
	if err != nil {
		return monthSummary{}, err
	}
	incomes, err := s.ledger.Incomes(ctx)
	if err != nil {
		return monthSummary{}, err
	}
	us, err := s.settings.Get(ctx, user.ID)
	if err != nil {
		return monthSummary{}, err
	}
	categories, err := s.settings.Categories(ctx, user.ID)
	if err != nil {
		return monthSummary{}, err
	}

	var myExpenses []core.Expense
	for _, e := range expenses {
		if e.UserID == user.ID {
			myExpenses = append(myExpenses, e)
		}
	}
	var myIncomes []core.Income
	for _, in := range incomes {
		if in.UserID == user.ID {
			myIncomes = append(myIncomes, in)
		}
	}

	m := report.Month{Year: year, Month: month}
	totalExp := report.TotalExpenses(myExpenses, m)
	byCat := report.ExpensesByCategory(myExpenses, categories, m)

	limits := make(map[core.Category]core.Money, len(us.CategoryLimits))
	for _, cl := range us.CategoryLimits {
		limits[cl.Category] = cl.Limit
	}

	catRows := make([]categoryAmount, 0, len(categories))
	for _, c := range categories {
		row := categoryAmount{Category: c, Spent: byCat[c]}
		if limit, ok := limits[c]; ok {
			usage := report.LimitPercentage(byCat[c], limit)
			row.Limit = &limit
			row.LimitUsage = &usage
		}
		catRows = append(catRows, row)
	}

	summary := monthSummary{
		Year:            year,
		Month:           month,
		TotalExpenses:   totalExp,
		TotalIncomes:    report.TotalIncomes(myIncomes, m),
		Balance:         report.Balance(myExpenses, myIncomes, m),
		ByCategory:      catRows,
		ByPaymentMethod: report.ExpensesByPaymentMethod(myExpenses, m),
	}
	if us.TotalLimit.Cents > 0 {
		usage := report.LimitPercentage(totalExp, us.TotalLimit)
		summary.TotalLimit = &us.TotalLimit
		summary.TotalLimitUsage = &usage
	}
	return summary, nil
}

func (s *Server) handleFutureExpenses(w http.ResponseWriter, r *http.Request, user core.User) {
	months := 3
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 24 {
			months = n
		}
	}

	expenses, err := s.ledger.Expenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	fixed, err := s.ledger.FixedExpenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var myExpenses []core.Expense
	for _, e := range expenses {
		if e.UserID == user.ID {
			myExpenses = append(myExpenses, e)
		}
	}
	var myFixed []core.FixedExpense
	for _, fe := range fixed {
		if fe.UserID == user.ID {
			myFixed = append(myFixed, fe)
		}
	}

	future := report.FutureExpenses(myExpenses, myFixed, months, time.Now())
	if future == nil {
		future = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, future)
}
