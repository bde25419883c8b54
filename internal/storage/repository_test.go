package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"spendtrack/internal/core"
)

type RepositorySuite struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
}

func (s *RepositorySuite) SetupTest() {
	repo, err := NewSQLiteRepository(filepath.Join(s.T().TempDir(), "spendtrack.db"))
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RepositorySuite) TearDownTest() {
	s.Require().NoError(s.repo.Close())
}

func (s *RepositorySuite) insert(owner int64, cents int64, desc string, cat core.Category, at time.Time) int64 {
	id, err := s.repo.InsertExpense(s.ctx, core.Expense{
		OwnerID:     owner,
		Amount:      core.Money{Cents: cents},
		Description: desc,
		Category:    cat,
		OccurredAt:  at,
	})
	s.Require().NoError(err)
	return id
}

func (s *RepositorySuite) TestInsertAndGet() {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	id := s.insert(1, 1250, "Lunch", core.CategoryFood, at)

	got, err := s.repo.GetExpense(s.ctx, id, 1)
	s.Require().NoError(err)
	s.Equal(int64(1250), got.Amount.Cents)
	s.Equal("Lunch", got.Description)
	s.Equal(core.CategoryFood, got.Category)
	s.True(got.OccurredAt.Equal(at))
}

func (s *RepositorySuite) TestGetMissingReturnsNotFound() {
	_, err := s.repo.GetExpense(s.ctx, 999, 1)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *RepositorySuite) TestGetScopedToOwner() {
	id := s.insert(1, 500, "Bus", core.CategoryTransport, time.Now().UTC())

	_, err := s.repo.GetExpense(s.ctx, id, 2)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *RepositorySuite) TestUpdateExpense() {
	id := s.insert(1, 500, "Bus", core.CategoryTransport, time.Now().UTC())

	newDesc := "Train"
	newAmount := core.Money{Cents: 750}
	err := s.repo.UpdateExpense(s.ctx, id, 1, core.ExpenseUpdate{
		Amount:      &newAmount,
		Description: &newDesc,
	})
	s.Require().NoError(err)

	got, err := s.repo.GetExpense(s.ctx, id, 1)
	s.Require().NoError(err)
	s.Equal(int64(750), got.Amount.Cents)
	s.Equal("Train", got.Description)
	s.Equal(core.CategoryTransport, got.Category)
}

func (s *RepositorySuite) TestUpdateWrongOwnerReturnsNotFound() {
	id := s.insert(1, 500, "Bus", core.CategoryTransport, time.Now().UTC())

	desc := "Hacked"
	err := s.repo.UpdateExpense(s.ctx, id, 2, core.ExpenseUpdate{Description: &desc})
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *RepositorySuite) TestDeleteExpense() {
	id := s.insert(1, 500, "Bus", core.CategoryTransport, time.Now().UTC())

	s.Require().NoError(s.repo.DeleteExpense(s.ctx, id, 1))

	_, err := s.repo.GetExpense(s.ctx, id, 1)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *RepositorySuite) TestDeleteWrongOwnerLeavesRecord() {
	id := s.insert(1, 500, "Bus", core.CategoryTransport, time.Now().UTC())

	err := s.repo.DeleteExpense(s.ctx, id, 2)
	s.ErrorIs(err, core.ErrNotFound)

	got, err := s.repo.GetExpense(s.ctx, id, 1)
	s.Require().NoError(err)
	s.Equal("Bus", got.Description)
}

func (s *RepositorySuite) TestQueryNewestFirst() {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.insert(1, 100, "first", core.CategoryOther, base)
	s.insert(1, 200, "second", core.CategoryOther, base.Add(time.Hour))
	s.insert(1, 300, "third", core.CategoryOther, base.Add(2*time.Hour))

	got, err := s.repo.Query(s.ctx, 1, core.Filter{})
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal("third", got[0].Description)
	s.Equal("second", got[1].Description)
	s.Equal("first", got[2].Description)
}

func (s *RepositorySuite) TestQueryFilters() {
	base := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	s.insert(1, 1200, "Groceries", core.CategoryFood, base)
	s.insert(1, 4500, "Electric bill", core.CategoryBills, base.Add(24*time.Hour))
	s.insert(1, 800, "Cinema", core.CategoryEntertainment, base.Add(48*time.Hour))
	s.insert(2, 9999, "Other owner", core.CategoryFood, base)

	cat := core.CategoryFood
	got, err := s.repo.Query(s.ctx, 1, core.Filter{Category: &cat})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("Groceries", got[0].Description)

	min := int64(1000)
	got, err = s.repo.Query(s.ctx, 1, core.Filter{MinCents: &min})
	s.Require().NoError(err)
	s.Len(got, 2)

	got, err = s.repo.Query(s.ctx, 1, core.Filter{Term: "bill"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("Electric bill", got[0].Description)

	start := base.Add(12 * time.Hour)
	end := base.Add(36 * time.Hour)
	got, err = s.repo.Query(s.ctx, 1, core.Filter{Start: &start, End: &end})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("Electric bill", got[0].Description)
}

func (s *RepositorySuite) TestTermMatchesCategoryName() {
	s.insert(1, 1200, "Groceries", core.CategoryFood, time.Now().UTC())

	got, err := s.repo.Query(s.ctx, 1, core.Filter{Term: "food"})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *RepositorySuite) TestTermMatchesMetacharactersLiterally() {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s.insert(1, 900, "plain coffee", core.CategoryFood, base)
	s.insert(1, 1500, "100% juice", core.CategoryFood, base.Add(time.Hour))
	s.insert(1, 2000, "under_score club", core.CategoryOther, base.Add(2*time.Hour))
	s.insert(1, 2500, "under score diner", core.CategoryOther, base.Add(3*time.Hour))

	got, err := s.repo.Query(s.ctx, 1, core.Filter{Term: "%"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("100% juice", got[0].Description)

	got, err = s.repo.Query(s.ctx, 1, core.Filter{Term: "under_score"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("under_score club", got[0].Description)

	got, err = s.repo.Query(s.ctx, 1, core.Filter{Term: `co\ffee`})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *RepositorySuite) TestCategoryAggregates() {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.insert(1, 5000, "Groceries", core.CategoryFood, base)
	s.insert(1, 3000, "Dinner", core.CategoryFood, base.Add(time.Hour))
	s.insert(1, 10000, "Rent share", core.CategoryBills, base.Add(2*time.Hour))

	aggs, err := s.repo.CategoryAggregates(s.ctx, 1, core.Filter{})
	s.Require().NoError(err)
	s.Require().Len(aggs, 2)

	byCat := map[core.Category]core.CategoryAggregate{}
	for _, a := range aggs {
		byCat[a.Category] = a
	}
	s.Equal(int64(8000), byCat[core.CategoryFood].TotalCents)
	s.Equal(int64(2), byCat[core.CategoryFood].Count)
	s.Equal(int64(10000), byCat[core.CategoryBills].TotalCents)
}

func (s *RepositorySuite) TestOverallAggregate() {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.insert(1, 5000, "Groceries", core.CategoryFood, base)
	s.insert(1, 3000, "Dinner", core.CategoryFood, base.Add(time.Hour))
	s.insert(1, 10000, "Rent share", core.CategoryBills, base.Add(2*time.Hour))

	agg, err := s.repo.OverallAggregate(s.ctx, 1, core.Filter{})
	s.Require().NoError(err)
	s.Equal(int64(18000), agg.TotalCents)
	s.Equal(int64(3), agg.Count)
	s.Equal(int64(3000), agg.MinCents)
	s.Equal(int64(10000), agg.MaxCents)
}

func (s *RepositorySuite) TestOverallAggregateEmpty() {
	agg, err := s.repo.OverallAggregate(s.ctx, 1, core.Filter{})
	s.Require().NoError(err)
	s.Equal(int64(0), agg.Count)
	s.Equal(int64(0), agg.TotalCents)
}

func (s *RepositorySuite) TestMonthlyTotals() {
	s.insert(1, 1000, "jan", core.CategoryOther, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	s.insert(1, 2000, "jan again", core.CategoryOther, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC))
	s.insert(1, 3000, "june", core.CategoryOther, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	s.insert(1, 9000, "other year", core.CategoryOther, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))

	totals, err := s.repo.MonthlyTotals(s.ctx, 1, 2026)
	s.Require().NoError(err)

	byMonth := map[int]int64{}
	for _, t := range totals {
		byMonth[t.Month] = t.TotalCents
	}
	s.Equal(int64(3000), byMonth[1])
	s.Equal(int64(3000), byMonth[6])
	s.NotContains(byMonth, 12)
}

func (s *RepositorySuite) TestLargestExpense() {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.insert(1, 5000, "Groceries", core.CategoryFood, base)
	s.insert(1, 10000, "Rent share", core.CategoryBills, base.Add(time.Hour))

	got, err := s.repo.LargestExpense(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("Rent share", got.Description)

	got, err = s.repo.LargestExpense(s.ctx, 2)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RepositorySuite) TestUsers() {
	u, err := s.repo.CreateUser(s.ctx, "alice", "hash-a")
	s.Require().NoError(err)
	s.NotZero(u.ID)

	got, err := s.repo.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)
	s.Equal("hash-a", got.PasswordHash)

	got, err = s.repo.GetUserByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("alice", got.Username)

	_, err = s.repo.GetUserByUsername(s.ctx, "nobody")
	s.ErrorIs(err, core.ErrUserNotFound)

	count, err := s.repo.UserCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RepositorySuite) TestSessionLifecycle() {
	u, err := s.repo.CreateUser(s.ctx, "bob", "hash-b")
	s.Require().NoError(err)

	expires := time.Now().UTC().Add(time.Hour)
	s.Require().NoError(s.repo.CreateSession(s.ctx, "tok-1", u.ID, expires))

	info, err := s.repo.ValidateSession(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal(u.ID, info.User.ID)
	s.WithinDuration(expires, info.ExpiresAt, time.Second)

	later := time.Now().UTC().Add(2 * time.Hour)
	s.Require().NoError(s.repo.RenewSession(s.ctx, "tok-1", later))
	info, err = s.repo.ValidateSession(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.WithinDuration(later, info.ExpiresAt, time.Second)

	s.Require().NoError(s.repo.DeleteSession(s.ctx, "tok-1"))
	_, err = s.repo.ValidateSession(s.ctx, "tok-1")
	s.ErrorIs(err, core.ErrUserNotFound)
}

func (s *RepositorySuite) TestExpiredSessionRejected() {
	u, err := s.repo.CreateUser(s.ctx, "carol", "hash-c")
	s.Require().NoError(err)

	s.Require().NoError(s.repo.CreateSession(s.ctx, "tok-old", u.ID, time.Now().UTC().Add(-time.Minute)))

	_, err = s.repo.ValidateSession(s.ctx, "tok-old")
	s.ErrorIs(err, core.ErrUserNotFound)

	s.Require().NoError(s.repo.CleanExpiredSessions(s.ctx))
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func TestMigrationsAreIdempotentPerDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	_, err = repo.InsertExpense(context.Background(), core.Expense{
		OwnerID:     1,
		Amount:      core.Money{Cents: 100},
		Description: "persisted",
		Category:    core.CategoryOther,
		OccurredAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.Query(context.Background(), 1, core.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "persisted", got[0].Description)
}
