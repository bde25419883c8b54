package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/report"
	"spendtrack/internal/services"
)

// DefaultOwnerID is the implicit account of the single-user CLI variant.
const DefaultOwnerID int64 = 1

// Menu is the interactive single-user frontend. All reads go through the
// engine and all writes through the service, same as the web variant.
type Menu struct {
	engine  *report.Engine
	service *services.ExpenseService
	owner   int64
	logger  *log.Logger

	in  *bufio.Scanner
	out io.Writer
}

func NewMenu(engine *report.Engine, service *services.ExpenseService, owner int64, in io.Reader, out io.Writer, logger *log.Logger) *Menu {
	return &Menu{
		engine:  engine,
		service: service,
		owner:   owner,
		logger:  logger.WithComponent(log.ComponentCLI),
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// Run loops over the menu until the user quits or input ends.
func (m *Menu) Run(ctx context.Context) error {
	for {
		m.printMenu()
		choice, ok := m.readLine("> ")
		if !ok {
			return nil
		}

		var err error
		switch strings.TrimSpace(choice) {
		case "1":
			err = m.addExpense(ctx)
		case "2":
			err = m.listAll(ctx)
		case "3":
			err = m.filterByCategory(ctx)
		case "4":
			err = m.search(ctx)
		case "5":
			err = m.monthlyReport(ctx)
		case "6":
			err = m.yearlySummary(ctx)
		case "7":
			err = m.insights(ctx)
		case "8":
			err = m.comparison(ctx)
		case "9":
			err = m.breakdown(ctx)
		case "10":
			err = m.editExpense(ctx)
		case "11":
			err = m.deleteExpense(ctx)
		case "0", "q", "quit", "exit":
			fmt.Fprintln(m.out, "Bye!")
			return nil
		default:
			fmt.Fprintln(m.out, "Unknown option.")
		}

		if err != nil {
			if core.IsValidation(err) || errors.Is(err, core.ErrNotFound) {
				fmt.Fprintf(m.out, "Error: %v\n", err)
				continue
			}
			return err
		}
	}
}

func (m *Menu) printMenu() {
	fmt.Fprint(m.out, `
==== SpendTrack ====
 1) Add expense
 2) List all expenses
 3) Filter by category
 4) Search
 5) Monthly report
 6) Yearly summary
 7) Insights
 8) This month vs last month
 9) Category breakdown
10) Edit expense
11) Delete expense
 0) Quit
`)
}

// readLine prompts and reads one line. ok is false on EOF.
func (m *Menu) readLine(prompt string) (string, bool) {
	fmt.Fprint(m.out, prompt)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) addExpense(ctx context.Context) error {
	desc, ok := m.readLine("Description: ")
	if !ok {
		return nil
	}
	amountStr, ok := m.readLine("Amount: ")
	if !ok {
		return nil
	}
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		return err
	}
	cat, err := m.readCategory()
	if err != nil {
		return err
	}

	id, err := m.service.Add(ctx, core.Expense{
		OwnerID:     m.owner,
		Amount:      core.Money{Cents: cents},
		Description: desc,
		Category:    cat,
		OccurredAt:  time.Now(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Recorded #%d: %s %s (%s)\n", id, core.Money{Cents: cents}, desc, cat)
	return nil
}

// readCategory shows a numbered category list and reads a choice, either
// by number or by name.
func (m *Menu) readCategory() (core.Category, error) {
	cats := core.Categories()
	for i, c := range cats {
		fmt.Fprintf(m.out, "  %d) %s\n", i+1, c)
	}
	choice, ok := m.readLine("Category: ")
	if !ok {
		return "", core.NewValidationError("category", "no input")
	}
	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(cats) {
			return "", core.NewValidationError("category", "choice out of range")
		}
		return cats[n-1], nil
	}
	return core.ParseCategory(choice)
}

func (m *Menu) listAll(ctx context.Context) error {
	items, err := m.engine.ListAll(ctx, m.owner)
	if err != nil {
		return err
	}
	m.printExpenses(items)
	return nil
}

func (m *Menu) filterByCategory(ctx context.Context) error {
	cat, err := m.readCategory()
	if err != nil {
		return err
	}
	items, err := m.engine.FilterByCategory(ctx, m.owner, cat)
	if err != nil {
		return err
	}
	m.printExpenses(items)
	return nil
}

func (m *Menu) search(ctx context.Context) error {
	term, ok := m.readLine("Search term: ")
	if !ok || term == "" {
		fmt.Fprintln(m.out, "Search cancelled.")
		return nil
	}
	items, err := m.engine.Search(ctx, m.owner, term)
	if err != nil {
		return err
	}
	m.printExpenses(items)
	return nil
}

func (m *Menu) printExpenses(items []core.Expense) {
	if len(items) == 0 {
		fmt.Fprintln(m.out, "No expenses found.")
		return
	}
	var total int64
	fmt.Fprintf(m.out, "%-5s %-12s %-30s %-14s %10s\n", "ID", "Date", "Description", "Category", "Amount")
	for _, e := range items {
		total += e.Amount.Cents
		fmt.Fprintf(m.out, "%-5d %-12s %-30s %-14s %10s\n",
			e.ID, e.OccurredAt.Format("2006-01-02"), truncate(e.Description, 30),
			e.Category, e.Amount)
	}
	fmt.Fprintf(m.out, "%d expenses, %s total\n", len(items), core.Money{Cents: total})
}

func (m *Menu) monthlyReport(ctx context.Context) error {
	year, month, err := m.readYearMonth()
	if err != nil {
		return err
	}
	rep, err := m.engine.MonthlyReport(ctx, m.owner, year, month)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "\n%s %d\n", time.Month(rep.Month), rep.Year)
	if rep.Overall == nil {
		fmt.Fprintln(m.out, "No expenses recorded this month.")
		return nil
	}
	fmt.Fprintf(m.out, "Total %s over %d expenses (avg %s, min %s, max %s)\n",
		core.Money{Cents: rep.Overall.TotalCents}, rep.Overall.Count,
		formatCentsFloat(rep.Overall.AverageCents),
		core.Money{Cents: rep.Overall.MinCents}, core.Money{Cents: rep.Overall.MaxCents})
	for _, c := range rep.Categories {
		fmt.Fprintf(m.out, "  %-14s %10s  %5.1f%%  (%dx)\n",
			c.Category, core.Money{Cents: c.TotalCents}, c.Percentage, c.Count)
	}
	return nil
}

func (m *Menu) readYearMonth() (int, int, error) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v, ok := m.readLine(fmt.Sprintf("Year [%d]: ", year)); ok && v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, core.NewValidationError("year", "not a number")
		}
		year = y
	}
	if v, ok := m.readLine(fmt.Sprintf("Month [%d]: ", month)); ok && v != "" {
		mo, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, core.NewValidationError("month", "not a number")
		}
		month = mo
	}
	return year, month, nil
}

func (m *Menu) yearlySummary(ctx context.Context) error {
	year := time.Now().Year()
	if v, ok := m.readLine(fmt.Sprintf("Year [%d]: ", year)); ok && v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.NewValidationError("year", "not a number")
		}
		year = y
	}
	sum, err := m.engine.YearlySummary(ctx, m.owner, year)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "\nYear %d: %s total, %s per month\n",
		sum.Year, core.Money{Cents: sum.TotalCents}, formatCentsFloat(sum.AveragePerMonthCents))
	for _, mt := range sum.Months {
		fmt.Fprintf(m.out, "  %-10s %10s", time.Month(mt.Month), core.Money{Cents: mt.TotalCents})
		if mt.Count > 0 {
			fmt.Fprintf(m.out, "  (%dx)", mt.Count)
		}
		fmt.Fprintln(m.out)
	}
	return nil
}

func (m *Menu) insights(ctx context.Context) error {
	ins, err := m.engine.Insights(ctx, m.owner)
	if err != nil {
		return err
	}
	if ins.TotalCount == 0 {
		fmt.Fprintln(m.out, "No expenses recorded yet.")
		return nil
	}
	fmt.Fprintf(m.out, "\nExpenses recorded: %d\n", ins.TotalCount)
	if ins.AverageCents != nil {
		fmt.Fprintf(m.out, "Average expense:   %s\n", formatCentsFloat(*ins.AverageCents))
	}
	if ins.HighestSpendingCategory != nil {
		fmt.Fprintf(m.out, "Top category:      %s (%s)\n",
			ins.HighestSpendingCategory.Category, core.Money{Cents: ins.HighestSpendingCategory.TotalCents})
	}
	if ins.MostFrequentCategory != nil {
		fmt.Fprintf(m.out, "Most frequent:     %s (%dx)\n",
			ins.MostFrequentCategory.Category, ins.MostFrequentCategory.Count)
	}
	if ins.LargestExpense != nil {
		e := ins.LargestExpense
		fmt.Fprintf(m.out, "Largest expense:   %s on %s: %s (%s)\n",
			e.Amount, e.OccurredAt.Format("2006-01-02"), e.Description, e.Category)
	}
	return nil
}

func (m *Menu) comparison(ctx context.Context) error {
	cmp, err := m.engine.MonthOverMonth(ctx, m.owner)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "\n%s %d: %s   vs   %s %d: %s\n",
		time.Month(cmp.ThisMonth), cmp.ThisYear, core.Money{Cents: cmp.ThisTotalCents},
		time.Month(cmp.LastMonth), cmp.LastYear, core.Money{Cents: cmp.LastTotalCents})
	if cmp.PercentChange != nil {
		fmt.Fprintf(m.out, "Change: %+.1f%%\n", *cmp.PercentChange)
	} else {
		fmt.Fprintln(m.out, "Change: n/a (no spending last month)")
	}
	for _, c := range cmp.Categories {
		fmt.Fprintf(m.out, "  %-14s %10s -> %10s\n",
			c.Category, core.Money{Cents: c.LastCents}, core.Money{Cents: c.ThisCents})
	}
	return nil
}

func (m *Menu) breakdown(ctx context.Context) error {
	items, err := m.engine.ListAll(ctx, m.owner)
	if err != nil {
		return err
	}
	entries := report.Breakdown(items)
	if len(entries) == 0 {
		fmt.Fprintln(m.out, "No expenses recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(m.out, "  %-14s %10s  %5.1f%%\n",
			e.Category, core.Money{Cents: e.TotalCents}, e.Percentage)
	}
	return nil
}

func (m *Menu) editExpense(ctx context.Context) error {
	id, err := m.readID()
	if err != nil {
		return err
	}

	// Empty input keeps a field unchanged.
	var update core.ExpenseUpdate
	if v, ok := m.readLine("New description (blank to keep): "); ok && v != "" {
		update.Description = &v
	}
	if v, ok := m.readLine("New amount (blank to keep): "); ok && v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return err
		}
		update.Amount = &core.Money{Cents: cents}
	}
	if v, ok := m.readLine("New category (blank to keep): "); ok && v != "" {
		cat, err := core.ParseCategory(v)
		if err != nil {
			return err
		}
		update.Category = &cat
	}

	if err := m.service.Edit(ctx, id, m.owner, update); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Expense #%d updated.\n", id)
	return nil
}

func (m *Menu) deleteExpense(ctx context.Context) error {
	id, err := m.readID()
	if err != nil {
		return err
	}
	confirm, ok := m.readLine(fmt.Sprintf("Delete expense #%d? (y/N): ", id))
	if !ok || !strings.EqualFold(confirm, "y") {
		fmt.Fprintln(m.out, "Cancelled.")
		return nil
	}
	if err := m.service.Delete(ctx, id, m.owner); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Expense #%d deleted.\n", id)
	return nil
}

func (m *Menu) readID() (int64, error) {
	v, ok := m.readLine("Expense ID: ")
	if !ok || v == "" {
		return 0, core.NewValidationError("id", "no input")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, core.NewValidationError("id", "not a number")
	}
	return id, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// formatCentsFloat formats a fractional cent amount for display.
func formatCentsFloat(cents float64) string {
	return fmt.Sprintf("$%.2f", cents/100.0)
}
