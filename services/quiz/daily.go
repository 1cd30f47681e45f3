// Package quiz selects the daily question set for each play mode.
package quiz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
)

// QuestionsPerDay 每日题目数
const QuestionsPerDay = 3

// Difficulty 题目难度
type Difficulty string

const (
	DifficultyEasy Difficulty = "easy"
	DifficultyHard Difficulty = "hard"
)

// Mode 游戏模式
type Mode string

const (
	// ModeDaily easy questions, 10 points
	ModeDaily Mode = "daily"
	// ModePro hard questions, 20 points, badge holders only
	ModePro Mode = "pro"
)

// ParseMode 解析模式名
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDaily, ModePro:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want daily or pro)", s)
}

// Difficulty 模式对应难度
func (m Mode) Difficulty() Difficulty {
	if m == ModePro {
		return DifficultyHard
	}
	return DifficultyEasy
}

// Points 确认加入后获得的分数
func (m Mode) Points() int {
	if m == ModePro {
		return 20
	}
	return 10
}

// RequiresBadge Pro 模式需要持有徽章
func (m Mode) RequiresBadge() bool {
	return m == ModePro
}

func (m Mode) seedModifier() int64 {
	if m == ModePro {
		return 999
	}
	return 0
}

// Question 题库中的题目（不含正确答案）
type Question struct {
	ID         int64      `json:"id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
	Active     bool       `json:"active"`
}

// DailySeed yyyy*10000 + mm*100 + dd（本地日历日）
func DailySeed(day time.Time) int64 {
	y, m, d := day.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

// SeededRandom frac(sin(seed) * 10000)，取值 [0, 1)
func SeededRandom(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}

// SelectDaily 按日期种子确定性洗牌后取前 QuestionsPerDay 道
//
// Same day, mode and bank always give the same selection.
func SelectDaily(bank []Question, mode Mode, day time.Time) []Question {
	seed := DailySeed(day) + mode.seedModifier()

	type keyed struct {
		q   Question
		key float64
	}
	items := make([]keyed, 0, len(bank))
	for _, q := range bank {
		items = append(items, keyed{q: q, key: SeededRandom(float64(seed + q.ID))})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].key != items[j].key {
			return items[i].key < items[j].key
		}
		return items[i].q.ID < items[j].q.ID
	})

	n := QuestionsPerDay
	if len(items) < n {
		n = len(items)
	}
	out := make([]Question, n)
	for i := range out {
		out[i] = items[i].q
	}
	return out
}

// Bank 题库
type Bank interface {
	// ActiveQuestions 返回指定难度的启用题目
	ActiveQuestions(ctx context.Context, difficulty Difficulty) ([]Question, error)
}

// Service 每日题目
type Service interface {
	Today(ctx context.Context, mode Mode) ([]Question, error)
}

type quizService struct {
	bank  Bank
	clock clockwork.Clock
}

// NewService 创建每日题目服务
func NewService(bank Bank, clock clockwork.Clock) Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &quizService{bank: bank, clock: clock}
}

func (s *quizService) Today(ctx context.Context, mode Mode) ([]Question, error) {
	questions, err := s.bank.ActiveQuestions(ctx, mode.Difficulty())
	if err != nil {
		return nil, fmt.Errorf("load %s questions failed: %w", mode.Difficulty(), err)
	}
	return SelectDaily(questions, mode, s.clock.Now()), nil
}
