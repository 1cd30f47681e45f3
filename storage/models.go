// Package storage persists player profiles, community quiz listings and the
// daily question bank.
//
// PostgresStore is backed by gorm; MemoryStore keeps everything in process
// for tests and local runs. Both satisfy profile.Store, community.Store and
// quiz.Bank.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/quesster/client-sdk-go/services/community"
	"github.com/quesster/client-sdk-go/services/profile"
	"github.com/quesster/client-sdk-go/services/quiz"
)

// ErrQuestionNotFound 题目不存在
var ErrQuestionNotFound = errors.New("question not found")

// ProfileRecord profiles 表
type ProfileRecord struct {
	WalletAddress string     `gorm:"primaryKey;size:42" json:"wallet_address"`
	Score         int64      `gorm:"not null;default:0;index" json:"score"`
	CurrentStreak int        `gorm:"not null;default:0" json:"current_streak"`
	LastPlayedAt  *time.Time `json:"last_played_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName gorm 表名
func (ProfileRecord) TableName() string { return "profiles" }

// QuizRecord community_quizzes 表；questions 以 jsonb 存储（含明文正确答案）
type QuizRecord struct {
	ID           uuid.UUID      `gorm:"primaryKey;type:uuid" json:"id"`
	BlockchainID string         `gorm:"not null" json:"blockchain_id"`
	Creator      string         `gorm:"size:42;not null;index" json:"creator_address"`
	Title        string         `gorm:"not null" json:"title"`
	Questions    datatypes.JSON `gorm:"type:jsonb;not null" json:"questions"`
	TxHash       string         `gorm:"size:66;uniqueIndex" json:"tx_hash"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

// TableName gorm 表名
func (QuizRecord) TableName() string { return "community_quizzes" }

// QuestionRecord questions 表（每日题库）
type QuestionRecord struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Text          string         `gorm:"not null" json:"question_text"`
	Options       datatypes.JSON `gorm:"type:jsonb;not null" json:"options"`
	CorrectAnswer string         `gorm:"not null" json:"correct_answer"`
	Difficulty    string         `gorm:"size:16;not null;index" json:"difficulty"`
	Active        bool           `gorm:"not null;default:true;index" json:"is_active"`
}

// TableName gorm 表名
func (QuestionRecord) TableName() string { return "questions" }

func profileRecordOf(p *profile.Profile) *ProfileRecord {
	return &ProfileRecord{
		WalletAddress: p.WalletAddress,
		Score:         p.Score,
		CurrentStreak: p.CurrentStreak,
		LastPlayedAt:  p.LastPlayedAt,
	}
}

func (r *ProfileRecord) toProfile() *profile.Profile {
	return &profile.Profile{
		WalletAddress: r.WalletAddress,
		Score:         r.Score,
		CurrentStreak: r.CurrentStreak,
		LastPlayedAt:  r.LastPlayedAt,
	}
}

func quizRecordOf(q *community.Quiz) (*QuizRecord, error) {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return nil, fmt.Errorf("encode quiz questions: %w", err)
	}
	return &QuizRecord{
		ID:           q.ID,
		BlockchainID: q.BlockchainID,
		Creator:      q.Creator,
		Title:        q.Title,
		Questions:    datatypes.JSON(questions),
		TxHash:       q.TxHash,
		CreatedAt:    q.CreatedAt,
	}, nil
}

func (r *QuizRecord) toQuiz() (*community.Quiz, error) {
	var questions []community.Question
	if err := json.Unmarshal(r.Questions, &questions); err != nil {
		return nil, fmt.Errorf("decode quiz %s questions: %w", r.ID, err)
	}
	return &community.Quiz{
		ID:           r.ID,
		BlockchainID: r.BlockchainID,
		Creator:      r.Creator,
		Title:        r.Title,
		Questions:    questions,
		TxHash:       r.TxHash,
		CreatedAt:    r.CreatedAt,
	}, nil
}

// BankEntry 题库录入项；CorrectAnswer 只落库，不随每日题目返回
type BankEntry struct {
	Text          string
	Options       []string
	CorrectAnswer string
	Difficulty    quiz.Difficulty
}

// Validate 题干、选项与正确答案规则同社区测验
func (e *BankEntry) Validate() error {
	if e.Difficulty != quiz.DifficultyEasy && e.Difficulty != quiz.DifficultyHard {
		return fmt.Errorf("unknown difficulty %q", e.Difficulty)
	}
	return community.ValidateQuestions([]community.Question{{
		Text:    e.Text,
		Options: e.Options,
		Correct: e.CorrectAnswer,
	}})
}

func questionRecordOf(e *BankEntry) (*QuestionRecord, error) {
	options, err := json.Marshal(e.Options)
	if err != nil {
		return nil, fmt.Errorf("encode question options: %w", err)
	}
	return &QuestionRecord{
		Text:          e.Text,
		Options:       datatypes.JSON(options),
		CorrectAnswer: e.CorrectAnswer,
		Difficulty:    string(e.Difficulty),
		Active:        true,
	}, nil
}

func (r *QuestionRecord) toQuestion() (quiz.Question, error) {
	var options []string
	if err := json.Unmarshal(r.Options, &options); err != nil {
		return quiz.Question{}, fmt.Errorf("decode question %d options: %w", r.ID, err)
	}
	return quiz.Question{
		ID:         r.ID,
		Text:       r.Text,
		Options:    options,
		Difficulty: quiz.Difficulty(r.Difficulty),
		Active:     r.Active,
	}, nil
}
