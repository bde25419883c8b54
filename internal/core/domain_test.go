package core

import (
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -50}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Amount:      Money{Cents: 100},
		Description: "coffee",
		Category:    CategoryFood,
		OccurredAt:  time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Amount: Money{Cents: 0}, Description: "a", Category: CategoryFood, OccurredAt: time.Now()},
		{Amount: Money{Cents: 1}, Description: "", Category: CategoryFood, OccurredAt: time.Now()},
		{Amount: Money{Cents: 1}, Description: "  ", Category: CategoryFood, OccurredAt: time.Now()},
		{Amount: Money{Cents: 1}, Description: "a", Category: Category("Groceries"), OccurredAt: time.Now()},
		{Amount: Money{Cents: 1}, Description: "a", Category: CategoryFood}, // zero timestamp
	}
	for i, e := range bads {
		err := e.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !IsValidation(err) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
	}
}

func TestExpenseUpdateValidate(t *testing.T) {
	amount := Money{Cents: 250}
	desc := "updated"
	cat := CategoryBills

	good := ExpenseUpdate{Amount: &amount, Description: &desc, Category: &cat}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	if err := (ExpenseUpdate{}).Validate(); err == nil {
		t.Fatalf("expected error for empty update")
	}

	badAmount := Money{Cents: 0}
	if err := (ExpenseUpdate{Amount: &badAmount}).Validate(); err == nil {
		t.Fatalf("expected error for zero amount")
	}

	badCat := Category("Misc")
	if err := (ExpenseUpdate{Category: &badCat}).Validate(); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Food", CategoryFood, true},
		{"food", CategoryFood, true},
		{" BILLS ", CategoryBills, true},
		{"Transport", CategoryTransport, true},
		{"Groceries", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !IsValidation(err) {
				t.Fatalf("%q expected ValidationError, got %v", tc.in, err)
			}
		}
	}
}

func TestCategoryRankFollowsEnumOrder(t *testing.T) {
	for i, c := range Categories() {
		if c.Rank() != i {
			t.Fatalf("category %s rank = %d, want %d", c, c.Rank(), i)
		}
	}
	if Category("Unknown").Rank() != len(Categories()) {
		t.Fatalf("unknown category should rank after all known ones")
	}
}
