package storage

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/quesster/client-sdk-go/services/community"
	"github.com/quesster/client-sdk-go/services/profile"
	"github.com/quesster/client-sdk-go/services/quiz"
)

// MemoryStore 进程内存储
type MemoryStore struct {
	mu        deadlock.RWMutex
	profiles  map[string]profile.Profile
	quizzes   []*community.Quiz
	questions []QuestionRecord
	nextID    int64
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]profile.Profile),
		nextID:   1,
	}
}

func (s *MemoryStore) GetProfile(ctx context.Context, walletAddress string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[walletAddress]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.WalletAddress] = *p
	return nil
}

func (s *MemoryStore) TopProfiles(ctx context.Context, limit int) ([]*profile.Profile, error) {
	s.mu.RLock()
	out := make([]*profile.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		p := p
		out = append(out, &p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].WalletAddress < out[j].WalletAddress
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) InsertQuiz(ctx context.Context, q *community.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	s.quizzes = append(s.quizzes, &cp)
	return nil
}

func (s *MemoryStore) ListQuizzes(ctx context.Context, limit int) ([]*community.Quiz, error) {
	s.mu.RLock()
	out := make([]*community.Quiz, len(s.quizzes))
	copy(out, s.quizzes)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetQuiz(ctx context.Context, id uuid.UUID) (*community.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, community.ErrNotFound
}

func (s *MemoryStore) ActiveQuestions(ctx context.Context, difficulty quiz.Difficulty) ([]quiz.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []quiz.Question
	for i := range s.questions {
		rec := &s.questions[i]
		if !rec.Active || rec.Difficulty != string(difficulty) {
			continue
		}
		q, err := rec.toQuestion()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// AddQuestion 录入题库，返回新题目 ID
func (s *MemoryStore) AddQuestion(ctx context.Context, e *BankEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	rec, err := questionRecordOf(e)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	s.questions = append(s.questions, *rec)
	return rec.ID, nil
}

// Deactivate 停用题目
func (s *MemoryStore) Deactivate(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.questions {
		if s.questions[i].ID == id {
			s.questions[i].Active = false
			return nil
		}
	}
	return ErrQuestionNotFound
}
