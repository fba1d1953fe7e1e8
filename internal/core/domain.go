package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	Pix        PaymentMethod = "Pix"
	Debit      PaymentMethod = "Débito"
	Cash       PaymentMethod = "Dinheiro"
	CreditCard PaymentMethod = "Cartão de Crédito"

	Salary    IncomeSource = "Salário"
	Freelance IncomeSource = "Freelance"
	Gift      IncomeSource = "Presente"
	OtherSrc  IncomeSource = "Outros"

	Daily   Periodicity = "Diário"
	Weekly  Periodicity = "Semanal"
	Monthly Periodicity = "Mensal"
	Yearly  Periodicity = "Anual"

	Food      Category = "Alimentação"
	Transport Category = "Transporte"
	Housing   Category = "Moradia"
	Leisure   Category = "Lazer"
	Health    Category = "Saúde"
	Education Category = "Educação"
	Other     Category = "Outros"
)

// SystemUserID marks synthetic rows produced by the projection engine.
const SystemUserID = "system"

// DefaultCategories is the built-in category set. Custom categories from
// user settings extend it per user.
var DefaultCategories = []Category{
	Food, Transport, Housing, Leisure, Health, Education, Other,
}

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{Pix, Debit, Cash, CreditCard}

// IncomeSources lists every accepted income source.
var IncomeSources = []IncomeSource{Salary, Freelance, Gift, OtherSrc}

// Periodicities lists every accepted fixed-expense periodicity.
var Periodicities = []Periodicity{Daily, Weekly, Monthly, Yearly}

// Themes lists every accepted UI theme.
var Themes = []string{"light", "dark", "neon", "cyberpunk"}

// Currencies lists every accepted display currency.
var Currencies = []string{"BRL", "USD", "EUR"}

type (
	PaymentMethod string
	Category      string
	IncomeSource  string
	Periodicity   string

	// Date is a calendar day; the time-of-day component is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		Email        string `json:"email"`
		PasswordHash string `json:"passwordHash"`
	}

	Expense struct {
		ID            string        `json:"id"`
		Value         Money         `json:"value"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		Date          Date          `json:"date"`
		Category      Category      `json:"category"`
		Description   string        `json:"description"`
		UserID        string        `json:"userId"`

		// Installment fields; zero when the expense is not split.
		Installments      int   `json:"installments,omitempty"`
		InstallmentValue  Money `json:"installmentValue"`
		InstallmentNumber int   `json:"installmentNumber,omitempty"`
		TotalValue        Money `json:"totalValue"`
	}

	Income struct {
		ID          string       `json:"id"`
		Value       Money        `json:"value"`
		Date        Date         `json:"date"`
		Source      IncomeSource `json:"source"`
		Description string       `json:"description"`
		UserID      string       `json:"userId"`
	}

	FixedExpense struct {
		ID          string      `json:"id"`
		Name        string      `json:"name"`
		Value       Money       `json:"value"`
		Periodicity Periodicity `json:"periodicity"`
		Category    Category    `json:"category"`
		DueDay      int         `json:"dueDay,omitempty"`
		UserID      string      `json:"userId"`
	}

	CategoryLimit struct {
		Category Category `json:"category"`
		Limit    Money    `json:"limit"`
	}

	UserSettings struct {
		UserID               string          `json:"userId"`
		Theme                string          `json:"theme"`
		Currency             string          `json:"currency"`
		CategoryLimits       []CategoryLimit `json:"categoryLimits"`
		TotalLimit           Money           `json:"totalLimit"`
		ReceiveNotifications bool            `json:"receiveNotifications"`
		CustomCategories     []string        `json:"customCategories"`
	}

	ShoppingItem struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Quantity int64  `json:"quantity"`
		UnitCost Money  `json:"unitCost"`
		Total    Money  `json:"total"`
		Checked  bool   `json:"checked"`
	}

	ShoppingList struct {
		ID          string         `json:"id"`
		Name        string         `json:"name"`
		Date        Date           `json:"date"`
		Items       []ShoppingItem `json:"items"`
		TotalCost   Money          `json:"totalCost"`
		IsCompleted bool           `json:"isCompleted"`
		UserID      string         `json:"userId"`
	}
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidPayment      = errors.New("invalid payment method")
	ErrInvalidSource       = errors.New("invalid income source")
	ErrInvalidPeriodicity  = errors.New("invalid periodicity")
	ErrInvalidInstallments = errors.New("invalid installment count")
	ErrInvalidDueDay       = errors.New("invalid due day")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidTheme        = errors.New("invalid theme")
	ErrInvalidCurrency     = errors.New("invalid currency")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the 1-indexed month.
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the year.
func (d Date) Year() int { return d.Time.Year() }

// AddMonths shifts the date forward by n calendar months, letting day
// overflow normalize the way time.AddDate does (Jan 31 + 1 month = Mar 2/3).
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MarshalJSON encodes the date as "YYYY-MM-DD", matching the persisted layout.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format("2006-01-02"))), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return ErrInvalidDate
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON encodes a money amount as its integer cent count.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = v
	return nil
}

func (pm PaymentMethod) Valid() bool {
	for _, m := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

func (src IncomeSource) Valid() bool {
	for _, s := range IncomeSources {
		if src == s {
			return true
		}
	}
	return false
}

func (p Periodicity) Valid() bool {
	for _, pp := range Periodicities {
		if p == pp {
			return true
		}
	}
	return false
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Value.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(e.Category)) == "" {
		return ErrEmptyCategory
	}
	if !e.PaymentMethod.Valid() {
		return ErrInvalidPayment
	}
	if e.InstallmentNumber != 0 {
		if e.Installments < 1 || e.InstallmentNumber < 1 || e.InstallmentNumber > e.Installments {
			return ErrInvalidInstallments
		}
	}
	return nil
}

func (in Income) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(in.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(in.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := in.Value.Validate(); err != nil {
		return err
	}
	if !in.Source.Valid() {
		return ErrInvalidSource
	}
	return nil
}

func (fe FixedExpense) Validate() error {
	if len(strings.TrimSpace(fe.Name)) == 0 {
		return ErrEmptyName
	}
	if len(fe.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := fe.Value.Validate(); err != nil {
		return err
	}
	if !fe.Periodicity.Valid() {
		return ErrInvalidPeriodicity
	}
	if strings.TrimSpace(string(fe.Category)) == "" {
		return ErrEmptyCategory
	}
	if fe.DueDay < 0 || fe.DueDay > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

func (it ShoppingItem) Validate() error {
	if len(strings.TrimSpace(it.Name)) == 0 {
		return ErrEmptyName
	}
	if it.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if it.UnitCost.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
