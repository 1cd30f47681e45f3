// Package payout runs the administrative reward distribution on a daily
// schedule.
package payout

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/sasha-s/go-deadlock"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/services/quest"
	"github.com/quesster/client-sdk-go/wallet"
)

// Distributor 分发奖励（quest.Orchestrator）
type Distributor interface {
	DistributeRewards(ctx context.Context, w *wallet.Context, questID *big.Int) (*quest.Ticket, error)
}

// Scheduler 每日定时分发
//
// Each successful run distributes the current quest ID and advances it by
// one. A failed run keeps the ID so the next run retries it.
type Scheduler struct {
	mu   deadlock.Mutex
	next *big.Int

	dist    Distributor
	wallet  *wallet.Context
	at      gocron.AtTime
	timeout time.Duration
	clock   clockwork.Clock
	logger  client.Logger
	sched   gocron.Scheduler
}

// Option 调度器选项
type Option func(*Scheduler)

// WithClock 替换时钟
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithLogger 设置日志
func WithLogger(logger client.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithTimeout 单次分发等待确认的上限
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// NewScheduler 创建调度器；at 为本地时间 "HH:MM" 或 "HH:MM:SS"
func NewScheduler(dist Distributor, w *wallet.Context, firstQuestID *big.Int, at string, opts ...Option) (*Scheduler, error) {
	if firstQuestID == nil || firstQuestID.Sign() < 0 {
		return nil, fmt.Errorf("invalid first quest id %v", firstQuestID)
	}
	atTime, err := ParseAtTime(at)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		next:    new(big.Int).Set(firstQuestID),
		dist:    dist,
		wallet:  w,
		at:      atTime,
		timeout: 5 * time.Minute,
		clock:   clockwork.NewRealClock(),
		logger:  client.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ParseAtTime 解析 "HH:MM[:SS]"
func ParseAtTime(at string) (gocron.AtTime, error) {
	parts := strings.Split(strings.TrimSpace(at), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid time of day %q (want HH:MM)", at)
	}
	limits := []uint64{23, 59, 59}
	vals := make([]uint, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil || n > limits[i] {
			return nil, fmt.Errorf("invalid time of day %q (want HH:MM)", at)
		}
		vals[i] = uint(n)
	}
	return gocron.NewAtTime(vals[0], vals[1], vals[2]), nil
}

// NextQuestID 下一次要分发的任务 ID
func (s *Scheduler) NextQuestID() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.next)
}

// Start 注册每日任务并启动
func (s *Scheduler) Start() error {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(s.logger),
	)
	if err != nil {
		return fmt.Errorf("create scheduler failed: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(s.at)),
		gocron.NewTask(func(ctx context.Context) {
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("scheduled distribution failed", "error", err)
			}
		}),
		gocron.WithName("distribute-rewards"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule distribution failed: %w", err)
	}
	s.sched = sched
	sched.Start()
	s.logger.Info("reward distribution scheduled", "next_quest", s.NextQuestID().String())
	return nil
}

// Shutdown 停止调度
func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// RunOnce 分发当前任务并等待确认；成功后任务 ID 加一
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	questID := new(big.Int).Set(s.next)
	s.logger.Info("distributing rewards", "quest", questID.String())

	ticket, err := s.dist.DistributeRewards(ctx, s.wallet, questID)
	if err != nil {
		return fmt.Errorf("distribute quest %s failed: %w", questID, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := ticket.Wait(waitCtx); err != nil {
		return fmt.Errorf("distribute quest %s failed: %w", questID, err)
	}

	s.next.Add(s.next, big.NewInt(1))
	s.logger.Info("rewards distributed", "quest", questID.String(), "hash", ticket.Hash.Hex())
	return nil
}
