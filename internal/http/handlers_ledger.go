package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type expenseRequest struct {
	Value         core.Money         `json:"value"`
	PaymentMethod core.PaymentMethod `json:"paymentMethod"`
	Date          core.Date          `json:"date"`
	Category      core.Category      `json:"category"`
	Description   string             `json:"description"`
	Installments  int                `json:"installments"`
	TotalValue    core.Money         `json:"totalValue"`
}

type expensePatchRequest struct {
	Value         *core.Money         `json:"value"`
	PaymentMethod *core.PaymentMethod `json:"paymentMethod"`
	Date          *core.Date          `json:"date"`
	Category      *core.Category      `json:"category"`
	Description   *string             `json:"description"`
}

type incomeRequest struct {
	Value       core.Money        `json:"value"`
	Date        core.Date         `json:"date"`
	Source      core.IncomeSource `json:"source"`
	Description string            `json:"description"`
}

type incomePatchRequest struct {
	Value       *core.Money        `json:"value"`
	Date        *core.Date         `json:"date"`
	Source      *core.IncomeSource `json:"source"`
	Description *string            `json:"description"`
}

type fixedExpenseRequest struct {
	Name        string           `json:"name"`
	Value       core.Money       `json:"value"`
	Periodicity core.Periodicity `json:"periodicity"`
	Category    core.Category    `json:"category"`
	DueDay      int              `json:"dueDay"`
}

type fixedExpensePatchRequest struct {
	Name        *string           `json:"name"`
	Value       *core.Money       `json:"value"`
	Periodicity *core.Periodicity `json:"periodicity"`
	Category    *core.Category    `json:"category"`
	DueDay      *int              `json:"dueDay"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, user core.User) {
	expenses, err := s.ledger.Expenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	mine := make([]core.Expense, 0)
	for _, e := range expenses {
		if e.UserID == user.ID {
			mine = append(mine, e)
		}
	}
	writeJSON(w, http.StatusOK, mine)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := s.ledger.AddExpense(r.Context(), user.ID, ledger.ExpenseInput{
		Value:         req.Value,
		PaymentMethod: req.PaymentMethod,
		Date:          req.Date,
		Category:      req.Category,
		Description:   req.Description,
		Installments:  req.Installments,
		TotalValue:    req.TotalValue,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries(user.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	var req expensePatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if !s.ownsExpense(w, r, user, id) {
		return
	}

	updated, err := s.ledger.UpdateExpense(r.Context(), id, ledger.ExpensePatch{
		Value:         req.Value,
		PaymentMethod: req.PaymentMethod,
		Date:          req.Date,
		Category:      req.Category,
		Description:   req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries(user.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	id := r.PathValue("id")
	if !s.ownsExpense(w, r, user, id) {
		return
	}
	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateSummaries(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ownsExpense hides other users' records behind the same 404 an unknown id
// produces.
func (s *Server) ownsExpense(w http.ResponseWriter, r *http.Request, user core.User, id string) bool {
	expenses, err := s.ledger.Expenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return false
	}
	for _, e := range expenses {
		if e.ID == id && e.UserID == user.ID {
			return true
		}
	}
	writeError(w, http.StatusNotFound, "not found")
	return false
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request, user core.User) {
	incomes, err := s.ledger.Incomes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	mine := make([]core.Income, 0)
	for _, in := range incomes {
		if in.UserID == user.ID {
			mine = append(mine, in)
		}
	}
	writeJSON(w, http.StatusOK, mine)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request, user core.User) {
	var req incomeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := s.ledger.AddIncome(r.Context(), user.ID, ledger.IncomeInput{
		Value:       req.Value,
		Date:        req.Date,
		Source:      req.Source,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries(user.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request, user core.User) {
	var req incomePatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if !s.ownsIncome(w, r, user, id) {
		return
	}

	updated, err := s.ledger.UpdateIncome(r.Context(), id, ledger.IncomePatch{
		Value:       req.Value,
		Date:        req.Date,
		Source:      req.Source,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries(user.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request, user core.User) {
	id := r.PathValue("id")
	if !s.ownsIncome(w, r, user, id) {
		return
	}
	if err := s.ledger.DeleteIncome(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateSummaries(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownsIncome(w http.ResponseWriter, r *http.Request, user core.User, id string) bool {
	incomes, err := s.ledger.Incomes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return false
	}
	for _, in := range incomes {
		if in.ID == id && in.UserID == user.ID {
			return true
		}
	}
	writeError(w, http.StatusNotFound, "not found")
	return false
}

func (s *Server) handleListFixedExpenses(w http.ResponseWriter, r *http.Request, user core.User) {
	fixed, err := s.ledger.FixedExpenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	mine := make([]core.FixedExpense, 0)
	for _, fe := range fixed {
		if fe.UserID == user.ID {
			mine = append(mine, fe)
		}
	}
	writeJSON(w, http.StatusOK, mine)
}

func (s *Server) handleCreateFixedExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	var req fixedExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := s.ledger.AddFixedExpense(r.Context(), user.ID, ledger.FixedExpenseInput{
		Name:        req.Name,
		Value:       req.Value,
		Periodicity: req.Periodicity,
		Category:    req.Category,
		DueDay:      req.DueDay,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateFixedExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	var req fixedExpensePatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if !s.ownsFixedExpense(w, r, user, id) {
		return
	}

	updated, err := s.ledger.UpdateFixedExpense(r.Context(), id, ledger.FixedExpensePatch{
		Name:        req.Name,
		Value:       req.Value,
		Periodicity: req.Periodicity,
		Category:    req.Category,
		DueDay:      req.DueDay,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteFixedExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	id := r.PathValue("id")
	if !s.ownsFixedExpense(w, r, user, id) {
		return
	}
	if err := s.ledger.DeleteFixedExpense(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownsFixedExpense(w http.ResponseWriter, r *http.Request, user core.User, id string) bool {
	fixed, err := s.ledger.FixedExpenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return false
	}
	for _, fe := range fixed {
		if fe.ID == id && fe.UserID == user.ID {
			return true
		}
	}
	writeError(w, http.StatusNotFound, "not found")
	return false
}
