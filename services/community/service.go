package community

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrNotFound 测验不存在
var ErrNotFound = errors.New("community quiz not found")

// Store 测验列表持久化接口
type Store interface {
	InsertQuiz(ctx context.Context, quiz *Quiz) error
	// ListQuizzes 按创建时间降序；limit <= 0 表示不限
	ListQuizzes(ctx context.Context, limit int) ([]*Quiz, error)
	GetQuiz(ctx context.Context, id uuid.UUID) (*Quiz, error)
}

// Service 社区测验服务
type Service interface {
	// Publish 写入已上链测验的列表记录
	Publish(ctx context.Context, creator common.Address, title string, questions []Question, txHash common.Hash) (*Quiz, error)
	List(ctx context.Context, limit int) ([]*Quiz, error)
	Play(ctx context.Context, id uuid.UUID, answers []string) (*ScoreResult, error)
}

type communityService struct {
	store Store
	clock clockwork.Clock
}

// NewService 创建社区测验服务
func NewService(store Store, clock clockwork.Clock) Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &communityService{store: store, clock: clock}
}

func (s *communityService) Publish(ctx context.Context, creator common.Address, title string, questions []Question, txHash common.Hash) (*Quiz, error) {
	if err := ValidateDraft(title, questions); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	quiz := &Quiz{
		ID:           uuid.New(),
		BlockchainID: strconv.FormatInt(now.UnixMilli(), 10),
		Creator:      creator.Hex(),
		Title:        title,
		Questions:    questions,
		TxHash:       txHash.Hex(),
		CreatedAt:    now,
	}
	if err := s.store.InsertQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("insert community quiz failed: %w", err)
	}
	return quiz, nil
}

func (s *communityService) List(ctx context.Context, limit int) ([]*Quiz, error) {
	return s.store.ListQuizzes(ctx, limit)
}

func (s *communityService) Play(ctx context.Context, id uuid.UUID, answers []string) (*ScoreResult, error) {
	quiz, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get community quiz failed: %w", err)
	}
	return Score(quiz, answers)
}
