package quiz

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySeed(t *testing.T) {
	assert.Equal(t, int64(20260310), DailySeed(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, int64(20251231), DailySeed(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestSeededRandom(t *testing.T) {
	for _, seed := range []float64{0, 1, 20260310, 20261309, -5} {
		r := SeededRandom(seed)
		assert.GreaterOrEqual(t, r, 0.0)
		assert.Less(t, r, 1.0)
		assert.Equal(t, r, SeededRandom(seed))
	}
	x := math.Sin(1) * 10000
	assert.InDelta(t, x-math.Floor(x), SeededRandom(1), 1e-12)
}

func bank(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{ID: int64(i + 1), Text: "q", Active: true}
	}
	return qs
}

func ids(qs []Question) []int64 {
	out := make([]int64, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestSelectDaily_Deterministic(t *testing.T) {
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	first := SelectDaily(bank(20), ModeDaily, day)
	require.Len(t, first, QuestionsPerDay)
	assert.Equal(t, ids(first), ids(SelectDaily(bank(20), ModeDaily, day.Add(10*time.Hour))))

	// Input order does not matter.
	reversed := bank(20)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	assert.Equal(t, ids(first), ids(SelectDaily(reversed, ModeDaily, day)))
}

func TestSelectDaily_VariesAcrossDays(t *testing.T) {
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	seen := map[[3]int64]bool{}
	for i := 0; i < 7; i++ {
		sel := ids(SelectDaily(bank(30), ModeDaily, day.AddDate(0, 0, i)))
		seen[[3]int64{sel[0], sel[1], sel[2]}] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestSelectDaily_SmallBank(t *testing.T) {
	assert.Len(t, SelectDaily(bank(2), ModePro, time.Now()), 2)
	assert.Empty(t, SelectDaily(nil, ModePro, time.Now()))
}

func TestMode(t *testing.T) {
	assert.Equal(t, 10, ModeDaily.Points())
	assert.Equal(t, 20, ModePro.Points())
	assert.Equal(t, DifficultyHard, ModePro.Difficulty())
	assert.Equal(t, DifficultyEasy, ModeDaily.Difficulty())
	assert.True(t, ModePro.RequiresBadge())
	assert.False(t, ModeDaily.RequiresBadge())

	m, err := ParseMode("pro")
	require.NoError(t, err)
	assert.Equal(t, ModePro, m)
	_, err = ParseMode("hard")
	assert.Error(t, err)
}

type bankFunc func(ctx context.Context, d Difficulty) ([]Question, error)

func (f bankFunc) ActiveQuestions(ctx context.Context, d Difficulty) ([]Question, error) {
	return f(ctx, d)
}

func TestService_Today(t *testing.T) {
	var asked Difficulty
	b := bankFunc(func(ctx context.Context, d Difficulty) ([]Question, error) {
		asked = d
		return bank(10), nil
	})
	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := NewService(b, clockwork.NewFakeClockAt(day))

	got, err := svc.Today(context.Background(), ModePro)
	require.NoError(t, err)
	assert.Equal(t, DifficultyHard, asked)
	assert.Equal(t, ids(SelectDaily(bank(10), ModePro, day)), ids(got))

	failing := NewService(bankFunc(func(ctx context.Context, d Difficulty) ([]Question, error) {
		return nil, errors.New("db down")
	}), nil)
	_, err = failing.Today(context.Background(), ModeDaily)
	assert.ErrorContains(t, err, "db down")
}
