package http

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtrack/internal/core"
	"spendtrack/internal/report"
)

func TestParseListQuery(t *testing.T) {
	q := url.Values{
		"category": {"Food"},
		"min":      {"10"},
		"max":      {"99.99"},
		"q":        {"  coffee "},
		"from":     {"2026-01-01"},
		"to":       {"2026-06-30"},
	}
	lq, err := parseListQuery(q)
	require.NoError(t, err)

	require.NotNil(t, lq.Category)
	assert.Equal(t, core.CategoryFood, *lq.Category)
	require.NotNil(t, lq.MinCents)
	assert.Equal(t, int64(1000), *lq.MinCents)
	require.NotNil(t, lq.MaxCents)
	assert.Equal(t, int64(9999), *lq.MaxCents)
	assert.Equal(t, "coffee", lq.Term)
	require.NotNil(t, lq.From)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *lq.From)
}

func TestParseListQueryRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		q    url.Values
	}{
		{"unknown category", url.Values{"category": {"Gadgets"}}},
		{"bad min", url.Values{"min": {"ten"}}},
		{"bad max", url.Values{"max": {"-5"}}},
		{"unknown window", url.Values{"window": {"lastdecade"}}},
		{"bad from", url.Values{"from": {"01/02/2026"}}},
		{"bad to", url.Values{"to": {"yesterday"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseListQuery(tc.q)
			assert.Error(t, err)
		})
	}
}

func TestParseListQueryEmpty(t *testing.T) {
	lq, err := parseListQuery(url.Values{})
	require.NoError(t, err)
	assert.Nil(t, lq.Category)
	assert.Nil(t, lq.MinCents)
	assert.Nil(t, lq.MaxCents)
	assert.Empty(t, lq.Term)
	assert.Equal(t, "all", lq.cacheKey())
}

func TestListQueryCacheKeyIsCanonical(t *testing.T) {
	cat := core.CategoryFood
	min := int64(1000)
	a := listQuery{Category: &cat, MinCents: &min, Term: "Coffee"}
	b := listQuery{Term: "coffee", MinCents: &min, Category: &cat}
	assert.Equal(t, a.cacheKey(), b.cacheKey())

	c := listQuery{Window: report.WindowLast7Days}
	assert.NotEqual(t, a.cacheKey(), c.cacheKey())
}

func TestParseExpenseForm(t *testing.T) {
	form := url.Values{
		"description": {"  lunch  "},
		"amount":      {"12,50"},
		"category":    {"Food"},
		"date":        {"2026-03-10"},
	}
	p, err := parseExpenseForm(form)
	require.NoError(t, err)
	assert.Equal(t, "lunch", p.Description)
	assert.Equal(t, int64(1250), p.Cents)
	assert.Equal(t, core.CategoryFood, p.Category)
	assert.Equal(t, 10, p.OccurredAt.Day())
}

func TestParseExpenseFormDefaultsDateToNow(t *testing.T) {
	form := url.Values{
		"description": {"lunch"},
		"amount":      {"5"},
		"category":    {"Food"},
	}
	p, err := parseExpenseForm(form)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), p.OccurredAt, time.Minute)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", sanitizeInput("  hello  "))
	assert.Equal(t, "ab", sanitizeInput("a\x00b"))
	assert.Equal(t, "a\tb", sanitizeInput("a\tb"))
}
