package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, 3, 9)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-03-09"` {
		t.Fatalf("expected \"2025-03-09\", got %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v != %v", back, d)
	}
}

func TestDateAddMonthsOverflow(t *testing.T) {
	// Jan 31 + 1 month normalizes past February, same as the Date
	// arithmetic the installment fan-out relies on.
	d := NewDate(2025, 1, 31).AddMonths(1)
	if d.Month() != 3 || d.Day() != 3 {
		t.Fatalf("expected 2025-03-03, got %04d-%02d-%02d", d.Year(), d.Month(), d.Day())
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:          NewDate(2025, 1, 1),
		Description:   "ok",
		Value:         Money{Cents: 100},
		Category:      "Lazer",
		PaymentMethod: Pix,
		UserID:        "u1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Description: "a", Value: Money{Cents: 1}, Category: "c", PaymentMethod: Pix}, // zero date
		{Date: NewDate(2025, 1, 1), Description: "", Value: Money{Cents: 1}, Category: "c", PaymentMethod: Pix},
		{Date: NewDate(2025, 1, 1), Description: "a", Value: Money{Cents: 0}, Category: "c", PaymentMethod: Pix},
		{Date: NewDate(2025, 1, 1), Description: "a", Value: Money{Cents: 1}, Category: "", PaymentMethod: Pix},
		{Date: NewDate(2025, 1, 1), Description: "a", Value: Money{Cents: 1}, Category: "c", PaymentMethod: "Cheque"},
		{Date: NewDate(2025, 1, 1), Description: "a", Value: Money{Cents: 1}, Category: "c", PaymentMethod: CreditCard, InstallmentNumber: 3, Installments: 2},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestIncomeValidate(t *testing.T) {
	good := Income{
		Date:        NewDate(2025, 2, 5),
		Description: "pagamento",
		Value:       Money{Cents: 500000},
		Source:      Salary,
		UserID:      "u1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Source = "Loteria"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestFixedExpenseValidate(t *testing.T) {
	good := FixedExpense{
		Name:        "Netflix",
		Value:       Money{Cents: 3990},
		Periodicity: Monthly,
		Category:    "Lazer",
		DueDay:      10,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []FixedExpense{
		{Name: "", Value: Money{Cents: 1}, Periodicity: Monthly, Category: "c"},
		{Name: "a", Value: Money{Cents: 0}, Periodicity: Monthly, Category: "c"},
		{Name: "a", Value: Money{Cents: 1}, Periodicity: "Quinzenal", Category: "c"},
		{Name: "a", Value: Money{Cents: 1}, Periodicity: Monthly, Category: ""},
		{Name: "a", Value: Money{Cents: 1}, Periodicity: Monthly, Category: "c", DueDay: 32},
	}
	for i, fe := range bads {
		if err := fe.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
