// Package profile keeps the off-chain score and streak for each wallet.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/quesster/client-sdk-go/client"
)

// DefaultLeaderboardSize 排行榜默认条数
const DefaultLeaderboardSize = 10

// ErrNotFound 档案不存在
var ErrNotFound = errors.New("profile not found")

// Profile 玩家档案，以钱包地址为唯一键
type Profile struct {
	WalletAddress string
	Score         int64
	CurrentStreak int
	LastPlayedAt  *time.Time
}

// PlayedToday 今天是否已计分
func (p *Profile) PlayedToday(now time.Time) bool {
	return p != nil && p.LastPlayedAt != nil && IsToday(*p.LastPlayedAt, now)
}

// Store 档案持久化接口
type Store interface {
	// GetProfile 不存在时返回 ErrNotFound
	GetProfile(ctx context.Context, walletAddress string) (*Profile, error)
	UpsertProfile(ctx context.Context, p *Profile) error
	// TopProfiles 按分数降序
	TopProfiles(ctx context.Context, limit int) ([]*Profile, error)
}

// SyncResult 计分结果
type SyncResult struct {
	Profile *Profile
	// Applied 为 false 表示今天已计分，本次未改动
	Applied bool
}

// Service 计分与排行榜
type Service interface {
	SyncScore(ctx context.Context, player common.Address, points int) (*SyncResult, error)
	GetProfile(ctx context.Context, player common.Address) (*Profile, error)
	Leaderboard(ctx context.Context, limit int) ([]*Profile, error)
}

type profileService struct {
	store  Store
	clock  clockwork.Clock
	logger client.Logger
}

// Option 服务选项
type Option func(*profileService)

// WithClock 替换时钟
func WithClock(clock clockwork.Clock) Option {
	return func(s *profileService) { s.clock = clock }
}

// WithLogger 设置日志
func WithLogger(logger client.Logger) Option {
	return func(s *profileService) { s.logger = logger }
}

// NewService 创建档案服务
func NewService(store Store, opts ...Option) Service {
	s := &profileService{
		store:  store,
		clock:  clockwork.NewRealClock(),
		logger: client.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncScore 确认加入任务后记分
//
// Idempotent per calendar day: a second call on the same day returns the
// stored profile without adding points or touching the streak.
func (s *profileService) SyncScore(ctx context.Context, player common.Address, points int) (*SyncResult, error) {
	key := player.Hex()
	now := s.clock.Now()

	current, err := s.store.GetProfile(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get profile failed: %w", err)
	}
	if current == nil {
		current = &Profile{WalletAddress: key}
	}

	if current.PlayedToday(now) {
		s.logger.Debug("score already synced today", "wallet", key)
		return &SyncResult{Profile: current, Applied: false}, nil
	}

	next := &Profile{
		WalletAddress: key,
		Score:         current.Score + int64(points),
		CurrentStreak: NextStreak(current.CurrentStreak, current.LastPlayedAt, now),
		LastPlayedAt:  &now,
	}
	if err := s.store.UpsertProfile(ctx, next); err != nil {
		return nil, fmt.Errorf("upsert profile failed: %w", err)
	}

	s.logger.Info("score synced", "wallet", key, "score", next.Score, "streak", next.CurrentStreak)
	return &SyncResult{Profile: next, Applied: true}, nil
}

func (s *profileService) GetProfile(ctx context.Context, player common.Address) (*Profile, error) {
	return s.store.GetProfile(ctx, player.Hex())
}

func (s *profileService) Leaderboard(ctx context.Context, limit int) ([]*Profile, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	top, err := s.store.TopProfiles(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard failed: %w", err)
	}
	return top, nil
}
