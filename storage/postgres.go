package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quesster/client-sdk-go/services/community"
	"github.com/quesster/client-sdk-go/services/profile"
	"github.com/quesster/client-sdk-go/services/quiz"
)

// PostgresStore gorm + PostgreSQL 实现
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres 连接数据库并迁移表结构
func OpenPostgres(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database failed: %w", err)
	}
	store := NewPostgresStore(db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// NewPostgresStore 使用已有连接
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate 自动迁移
func (s *PostgresStore) Migrate() error {
	if err := s.db.AutoMigrate(&ProfileRecord{}, &QuizRecord{}, &QuestionRecord{}); err != nil {
		return fmt.Errorf("migrate database failed: %w", err)
	}
	return nil
}

// Close 关闭底层连接
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ========== profile.Store ==========

func (s *PostgresStore) GetProfile(ctx context.Context, walletAddress string) (*profile.Profile, error) {
	var rec ProfileRecord
	err := s.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile failed: %w", err)
	}
	return rec.toProfile(), nil
}

// UpsertProfile 以钱包地址为冲突键写入
func (s *PostgresStore) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	rec := profileRecordOf(p)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "current_streak", "last_played_at", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("upsert profile failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) TopProfiles(ctx context.Context, limit int) ([]*profile.Profile, error) {
	var recs []ProfileRecord
	err := s.db.WithContext(ctx).
		Order("score DESC").
		Order("wallet_address ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query leaderboard failed: %w", err)
	}
	out := make([]*profile.Profile, len(recs))
	for i := range recs {
		out[i] = recs[i].toProfile()
	}
	return out, nil
}

// ========== community.Store ==========

func (s *PostgresStore) InsertQuiz(ctx context.Context, q *community.Quiz) error {
	rec, err := quizRecordOf(q)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert community quiz failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListQuizzes(ctx context.Context, limit int) ([]*community.Quiz, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var recs []QuizRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list community quizzes failed: %w", err)
	}
	out := make([]*community.Quiz, 0, len(recs))
	for i := range recs {
		q, err := recs[i].toQuiz()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *PostgresStore) GetQuiz(ctx context.Context, id uuid.UUID) (*community.Quiz, error) {
	var rec QuizRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, community.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query community quiz failed: %w", err)
	}
	return rec.toQuiz()
}

// ========== quiz.Bank ==========

func (s *PostgresStore) ActiveQuestions(ctx context.Context, difficulty quiz.Difficulty) ([]quiz.Question, error) {
	var recs []QuestionRecord
	err := s.db.WithContext(ctx).
		Where("difficulty = ? AND active = ?", string(difficulty), true).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query question bank failed: %w", err)
	}
	out := make([]quiz.Question, 0, len(recs))
	for i := range recs {
		q, err := recs[i].toQuestion()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// AddQuestion 录入题库，返回新题目 ID
func (s *PostgresStore) AddQuestion(ctx context.Context, e *BankEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	rec, err := questionRecordOf(e)
	if err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return 0, fmt.Errorf("insert question failed: %w", err)
	}
	return rec.ID, nil
}

// Deactivate 停用题目
func (s *PostgresStore) Deactivate(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&QuestionRecord{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate question failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrQuestionNotFound
	}
	return nil
}
