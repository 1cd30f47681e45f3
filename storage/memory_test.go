package storage

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quesster/client-sdk-go/services/community"
	"github.com/quesster/client-sdk-go/services/profile"
	"github.com/quesster/client-sdk-go/services/quiz"
)

var (
	_ profile.Store   = (*MemoryStore)(nil)
	_ community.Store = (*MemoryStore)(nil)
	_ quiz.Bank       = (*MemoryStore)(nil)
	_ profile.Store   = (*PostgresStore)(nil)
	_ community.Store = (*PostgresStore)(nil)
	_ quiz.Bank       = (*PostgresStore)(nil)
)

func TestMemoryStore_ProfilesAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetProfile(ctx, "0xabc")
	assert.ErrorIs(t, err, profile.ErrNotFound)

	for addr, score := range map[string]int64{"0xa": 30, "0xb": 50, "0xc": 30, "0xd": 10} {
		require.NoError(t, store.UpsertProfile(ctx, &profile.Profile{WalletAddress: addr, Score: score}))
	}
	require.NoError(t, store.UpsertProfile(ctx, &profile.Profile{WalletAddress: "0xd", Score: 60}))

	top, err := store.TopProfiles(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"0xd", "0xb", "0xa"}, []string{top[0].WalletAddress, top[1].WalletAddress, top[2].WalletAddress})

	// 返回副本，修改不影响存储
	got, err := store.GetProfile(ctx, "0xb")
	require.NoError(t, err)
	got.Score = 0
	again, _ := store.GetProfile(ctx, "0xb")
	assert.Equal(t, int64(50), again.Score)
}

func TestMemoryStore_ProfileServiceStreak(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local))
	svc := profile.NewService(NewMemoryStore(), profile.WithClock(clock))
	player := common.HexToAddress("0x765De816845861e75A25fCA122bb6898B8B1282a")

	res, err := svc.SyncScore(ctx, player, 10)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	clock.Advance(24 * time.Hour)
	res, err = svc.SyncScore(ctx, player, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.Profile.Score)
	assert.Equal(t, 2, res.Profile.CurrentStreak)

	res, err = svc.SyncScore(ctx, player, 20)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, int64(30), res.Profile.Score)
}

func TestMemoryStore_Quizzes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, store.InsertQuiz(ctx, &community.Quiz{
			ID:        ids[i],
			Title:     []string{"first", "second", "third"}[i],
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := store.ListQuizzes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Title)
	assert.Equal(t, "first", list[2].Title)

	list, err = store.ListQuizzes(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	q, err := store.GetQuiz(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "second", q.Title)

	_, err = store.GetQuiz(ctx, uuid.New())
	assert.ErrorIs(t, err, community.ErrNotFound)
}

func TestMemoryStore_QuestionBank(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	entries := []BankEntry{
		{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectAnswer: "Paris", Difficulty: quiz.DifficultyEasy},
		{Text: "2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Difficulty: quiz.DifficultyEasy},
		{Text: "Sky colour?", Options: []string{"Blue", "Green"}, CorrectAnswer: "Blue", Difficulty: quiz.DifficultyEasy},
		{Text: "Avogadro's number exponent?", Options: []string{"23", "32"}, CorrectAnswer: "23", Difficulty: quiz.DifficultyHard},
	}
	for i := range entries {
		id, err := store.AddQuestion(ctx, &entries[i])
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}

	easy, err := store.ActiveQuestions(ctx, quiz.DifficultyEasy)
	require.NoError(t, err)
	assert.Len(t, easy, 3)

	require.NoError(t, store.Deactivate(ctx, 2))
	assert.ErrorIs(t, store.Deactivate(ctx, 99), ErrQuestionNotFound)

	easy, err = store.ActiveQuestions(ctx, quiz.DifficultyEasy)
	require.NoError(t, err)
	require.Len(t, easy, 2)
	for _, q := range easy {
		assert.NotEqual(t, int64(2), q.ID)
	}

	svc := quiz.NewService(store, clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)))
	today, err := svc.Today(ctx, quiz.ModePro)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "Avogadro's number exponent?", today[0].Text)
}

func TestBankEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   BankEntry
		wantErr bool
	}{
		{"ok", BankEntry{Text: "q", Options: []string{"a", "b"}, CorrectAnswer: "a", Difficulty: quiz.DifficultyEasy}, false},
		{"unknown difficulty", BankEntry{Text: "q", Options: []string{"a"}, CorrectAnswer: "a", Difficulty: "medium"}, true},
		{"correct not an option", BankEntry{Text: "q", Options: []string{"a"}, CorrectAnswer: "b", Difficulty: quiz.DifficultyHard}, true},
		{"blank text", BankEntry{Options: []string{"a"}, CorrectAnswer: "a", Difficulty: quiz.DifficultyHard}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecordConversion(t *testing.T) {
	q := &community.Quiz{
		ID:           uuid.New(),
		BlockchainID: "1773133200000",
		Creator:      "0x765De816845861e75A25fCA122bb6898B8B1282a",
		Title:        "Capitals",
		Questions: []community.Question{
			{Text: "Capital of Spain?", Options: []string{"Madrid", "Lisbon"}, Correct: "Madrid"},
		},
		TxHash:    "0x01",
		CreatedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	rec, err := quizRecordOf(q)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":"Capital of Spain?","options":["Madrid","Lisbon"],"correct":"Madrid"}]`, string(rec.Questions))

	back, err := rec.toQuiz()
	require.NoError(t, err)
	assert.Equal(t, q, back)

	bad := &QuestionRecord{ID: 7, Options: []byte(`{"not":"a list"}`)}
	_, err = bad.toQuestion()
	assert.ErrorContains(t, err, "question 7")
}
