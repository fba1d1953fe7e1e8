// Package ledger is the record store for financial entries. Mutations rewrite
// the whole collection for the affected entity type through the kv store,
// mirroring how the persisted layout is organized key-per-collection.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/kvstore"

	"github.com/google/uuid"
)

type Ledger struct {
	mu sync.Mutex
	kv *kvstore.Store
}

func New(kv *kvstore.Store) *Ledger {
	return &Ledger{kv: kv}
}

// ExpenseInput carries the caller-supplied fields of a new expense. For a
// credit-card purchase split into installments, TotalValue holds the full
// purchase amount and Value is ignored.
type ExpenseInput struct {
	Value         core.Money
	PaymentMethod core.PaymentMethod
	Date          core.Date
	Category      core.Category
	Description   string
	Installments  int
	TotalValue    core.Money
}

// ExpensePatch carries the fields of an expense update; nil fields are left
// unchanged.
type ExpensePatch struct {
	Value         *core.Money
	PaymentMethod *core.PaymentMethod
	Date          *core.Date
	Category      *core.Category
	Description   *string
}

type IncomeInput struct {
	Value       core.Money
	Date        core.Date
	Source      core.IncomeSource
	Description string
}

type IncomePatch struct {
	Value       *core.Money
	Date        *core.Date
	Source      *core.IncomeSource
	Description *string
}

type FixedExpenseInput struct {
	Name        string
	Value       core.Money
	Periodicity core.Periodicity
	Category    core.Category
	DueDay      int
}

type FixedExpensePatch struct {
	Name        *string
	Value       *core.Money
	Periodicity *core.Periodicity
	Category    *core.Category
	DueDay      *int
}

// AddExpense stores a new expense owned by userID and returns the created
// rows. A credit-card purchase with more than one installment fans out into
// one independent row per installment: equal cent values with the final row
// absorbing the division remainder, dates advancing one calendar month per
// row, InstallmentNumber running 1..N.
func (l *Ledger) AddExpense(ctx context.Context, userID string, in ExpenseInput) ([]core.Expense, error) {
	if in.Installments < 0 {
		return nil, core.ErrInvalidInstallments
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	expenses, err := l.loadExpenses(ctx)
	if err != nil {
		return nil, err
	}

	var created []core.Expense
	if in.PaymentMethod == core.CreditCard && in.Installments > 1 {
		created, err = expandInstallments(userID, in)
		if err != nil {
			return nil, err
		}
	} else {
		e := core.Expense{
			ID:            uuid.NewString(),
			Value:         in.Value,
			PaymentMethod: in.PaymentMethod,
			Date:          in.Date,
			Category:      in.Category,
			Description:   in.Description,
			UserID:        userID,
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		created = []core.Expense{e}
	}

	expenses = append(expenses, created...)
	if err := l.kv.Put(ctx, kvstore.KeyExpenses, expenses); err != nil {
		return nil, fmt.Errorf("persist expenses: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"user_id", userID,
		"rows", len(created),
		"description", in.Description)

	return created, nil
}

// expandInstallments splits a purchase into per-month rows. The per-row value
// is the integer-cent quotient; the last row absorbs the remainder so the
// rows always sum to the total.
func expandInstallments(userID string, in ExpenseInput) ([]core.Expense, error) {
	n := in.Installments
	if err := in.TotalValue.Validate(); err != nil {
		return nil, err
	}

	per := in.TotalValue.Cents / int64(n)
	remainder := in.TotalValue.Cents - per*int64(n)

	rows := make([]core.Expense, 0, n)
	for i := 1; i <= n; i++ {
		value := per
		if i == n {
			value += remainder
		}
		e := core.Expense{
			ID:                uuid.NewString(),
			Value:             core.Money{Cents: value},
			PaymentMethod:     in.PaymentMethod,
			Date:              in.Date.AddMonths(i - 1),
			Category:          in.Category,
			Description:       in.Description,
			UserID:            userID,
			Installments:      n,
			InstallmentValue:  core.Money{Cents: per},
			InstallmentNumber: i,
			TotalValue:        in.TotalValue,
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		rows = append(rows, e)
	}
	return rows, nil
}

// UpdateExpense merge-patches the stored row. Returns core.ErrNotFound when
// no row carries the id.
func (l *Ledger) UpdateExpense(ctx context.Context, id string, patch ExpensePatch) (core.Expense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expenses, err := l.loadExpenses(ctx)
	if err != nil {
		return core.Expense{}, err
	}

	for i := range expenses {
		if expenses[i].ID != id {
			continue
		}
		e := expenses[i]
		if patch.Value != nil {
			e.Value = *patch.Value
		}
		if patch.PaymentMethod != nil {
			e.PaymentMethod = *patch.PaymentMethod
		}
		if patch.Date != nil {
			e.Date = *patch.Date
		}
		if patch.Category != nil {
			e.Category = *patch.Category
		}
		if patch.Description != nil {
			e.Description = *patch.Description
		}
		if err := e.Validate(); err != nil {
			return core.Expense{}, err
		}
		expenses[i] = e
		if err := l.kv.Put(ctx, kvstore.KeyExpenses, expenses); err != nil {
			return core.Expense{}, fmt.Errorf("persist expenses: %w", err)
		}
		return e, nil
	}

	return core.Expense{}, core.ErrNotFound
}

// DeleteExpense removes the row with the given id.
func (l *Ledger) DeleteExpense(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	expenses, err := l.loadExpenses(ctx)
	if err != nil {
		return err
	}

	kept := expenses[:0]
	found := false
	for _, e := range expenses {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return core.ErrNotFound
	}

	if err := l.kv.Put(ctx, kvstore.KeyExpenses, kept); err != nil {
		return fmt.Errorf("persist expenses: %w", err)
	}
	return nil
}

// Expenses returns a snapshot of all stored expenses.
func (l *Ledger) Expenses(ctx context.Context) ([]core.Expense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadExpenses(ctx)
}

// AddIncome stores a new income record owned by userID.
func (l *Ledger) AddIncome(ctx context.Context, userID string, in IncomeInput) (core.Income, error) {
	inc := core.Income{
		ID:          uuid.NewString(),
		Value:       in.Value,
		Date:        in.Date,
		Source:      in.Source,
		Description: in.Description,
		UserID:      userID,
	}
	if err := inc.Validate(); err != nil {
		return core.Income{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	incomes, err := l.loadIncomes(ctx)
	if err != nil {
		return core.Income{}, err
	}
	incomes = append(incomes, inc)
	if err := l.kv.Put(ctx, kvstore.KeyIncomes, incomes); err != nil {
		return core.Income{}, fmt.Errorf("persist incomes: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"user_id", userID,
		"source", string(in.Source),
		"amount_cents", in.Value.Cents)

	return inc, nil
}

func (l *Ledger) UpdateIncome(ctx context.Context, id string, patch IncomePatch) (core.Income, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	incomes, err := l.loadIncomes(ctx)
	if err != nil {
		return core.Income{}, err
	}

	for i := range incomes {
		if incomes[i].ID != id {
			continue
		}
		inc := incomes[i]
		if patch.Value != nil {
			inc.Value = *patch.Value
		}
		if patch.Date != nil {
			inc.Date = *patch.Date
		}
		if patch.Source != nil {
			inc.Source = *patch.Source
		}
		if patch.Description != nil {
			inc.Description = *patch.Description
		}
		if err := inc.Validate(); err != nil {
			return core.Income{}, err
		}
		incomes[i] = inc
		if err := l.kv.Put(ctx, kvstore.KeyIncomes, incomes); err != nil {
			return core.Income{}, fmt.Errorf("persist incomes: %w", err)
		}
		return inc, nil
	}

	return core.Income{}, core.ErrNotFound
}

func (l *Ledger) DeleteIncome(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	incomes, err := l.loadIncomes(ctx)
	if err != nil {
		return err
	}

	kept := incomes[:0]
	found := false
	for _, inc := range incomes {
		if inc.ID == id {
			found = true
			continue
		}
		kept = append(kept, inc)
	}
	if !found {
		return core.ErrNotFound
	}

	if err := l.kv.Put(ctx, kvstore.KeyIncomes, kept); err != nil {
		return fmt.Errorf("persist incomes: %w", err)
	}
	return nil
}

// Incomes returns a snapshot of all stored incomes.
func (l *Ledger) Incomes(ctx context.Context) ([]core.Income, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadIncomes(ctx)
}

// AddFixedExpense stores a recurring obligation template. Fixed expenses are
// not ledger entries; they only become expense-shaped rows when projected.
func (l *Ledger) AddFixedExpense(ctx context.Context, userID string, in FixedExpenseInput) (core.FixedExpense, error) {
	fe := core.FixedExpense{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Value:       in.Value,
		Periodicity: in.Periodicity,
		Category:    in.Category,
		DueDay:      in.DueDay,
		UserID:      userID,
	}
	if err := fe.Validate(); err != nil {
		return core.FixedExpense{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fixed, err := l.loadFixedExpenses(ctx)
	if err != nil {
		return core.FixedExpense{}, err
	}
	fixed = append(fixed, fe)
	if err := l.kv.Put(ctx, kvstore.KeyFixedExpenses, fixed); err != nil {
		return core.FixedExpense{}, fmt.Errorf("persist fixed expenses: %w", err)
	}

	slog.InfoContext(ctx, "Fixed expense saved",
		"name", in.Name,
		"periodicity", string(in.Periodicity),
		"due_day", in.DueDay)

	return fe, nil
}

func (l *Ledger) UpdateFixedExpense(ctx context.Context, id string, patch FixedExpensePatch) (core.FixedExpense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fixed, err := l.loadFixedExpenses(ctx)
	if err != nil {
		return core.FixedExpense{}, err
	}

	for i := range fixed {
		if fixed[i].ID != id {
			continue
		}
		fe := fixed[i]
		if patch.Name != nil {
			fe.Name = *patch.Name
		}
		if patch.Value != nil {
			fe.Value = *patch.Value
		}
		if patch.Periodicity != nil {
			fe.Periodicity = *patch.Periodicity
		}
		if patch.Category != nil {
			fe.Category = *patch.Category
		}
		if patch.DueDay != nil {
			fe.DueDay = *patch.DueDay
		}
		if err := fe.Validate(); err != nil {
			return core.FixedExpense{}, err
		}
		fixed[i] = fe
		if err := l.kv.Put(ctx, kvstore.KeyFixedExpenses, fixed); err != nil {
			return core.FixedExpense{}, fmt.Errorf("persist fixed expenses: %w", err)
		}
		return fe, nil
	}

	return core.FixedExpense{}, core.ErrNotFound
}

func (l *Ledger) DeleteFixedExpense(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fixed, err := l.loadFixedExpenses(ctx)
	if err != nil {
		return err
	}

	kept := fixed[:0]
	found := false
	for _, fe := range fixed {
		if fe.ID == id {
			found = true
			continue
		}
		kept = append(kept, fe)
	}
	if !found {
		return core.ErrNotFound
	}

	if err := l.kv.Put(ctx, kvstore.KeyFixedExpenses, kept); err != nil {
		return fmt.Errorf("persist fixed expenses: %w", err)
	}
	return nil
}

// FixedExpenses returns a snapshot of all stored fixed expenses.
func (l *Ledger) FixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadFixedExpenses(ctx)
}

func (l *Ledger) loadExpenses(ctx context.Context) ([]core.Expense, error) {
	var expenses []core.Expense
	if err := l.kv.Get(ctx, kvstore.KeyExpenses, &expenses); err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return expenses, nil
}

func (l *Ledger) loadIncomes(ctx context.Context) ([]core.Income, error) {
	var incomes []core.Income
	if err := l.kv.Get(ctx, kvstore.KeyIncomes, &incomes); err != nil {
		return nil, fmt.Errorf("load incomes: %w", err)
	}
	return incomes, nil
}

func (l *Ledger) loadFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	var fixed []core.FixedExpense
	if err := l.kv.Get(ctx, kvstore.KeyFixedExpenses, &fixed); err != nil {
		return nil, fmt.Errorf("load fixed expenses: %w", err)
	}
	return fixed, nil
}
