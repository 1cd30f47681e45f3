// Package community validates, lists and scores creator-made quizzes.
//
// Community quizzes are scored locally against the stored plaintext correct
// answers. Only the paid daily quest relies on on-chain commitments.
package community

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quesster/client-sdk-go/types"
)

// User-facing validation messages
const (
	MsgFillAllFields    = "Please fill all fields (including options)."
	MsgAnswerAll        = "Please answer all questions!"
	msgCorrectNotOption = "One option MUST match the correct answer exactly: %q"
	msgPerfect          = "🎉 PERFECT SCORE! You are a genius."
	msgPartial          = "You got %d out of %d correct."
)

// Question 单道题
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

// Quiz 社区测验列表记录
type Quiz struct {
	ID           uuid.UUID
	BlockchainID string
	Creator      string
	Title        string
	Questions    []Question
	TxHash       string
	CreatedAt    time.Time
}

// CorrectAnswers 按题目顺序返回正确答案
func CorrectAnswers(questions []Question) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = q.Correct
	}
	return out
}

// ValidateQuestions 结构完整性检查
//
// Every question needs text, a correct answer, and non-blank options; the
// correct answer must equal one option exactly (no trimming, case-sensitive).
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return types.NewValidationError(types.CodeQuestionIncomplete, MsgFillAllFields)
	}
	for i, q := range questions {
		if q.Text == "" || q.Correct == "" || len(q.Options) == 0 {
			return incomplete(i)
		}
		for _, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				return incomplete(i)
			}
		}
		if !contains(q.Options, q.Correct) {
			qe := types.NewValidationError(types.CodeCorrectAnswerMismatch, fmt.Sprintf(msgCorrectNotOption, q.Correct))
			qe.Detail = fmt.Sprintf("question %d", i+1)
			return qe
		}
	}
	return nil
}

// ValidateDraft 校验标题与题目
func ValidateDraft(title string, questions []Question) error {
	if strings.TrimSpace(title) == "" {
		return types.NewValidationError(types.CodeQuestionIncomplete, MsgFillAllFields)
	}
	return ValidateQuestions(questions)
}

func incomplete(i int) error {
	qe := types.NewValidationError(types.CodeQuestionIncomplete, MsgFillAllFields)
	qe.Detail = fmt.Sprintf("question %d", i+1)
	return qe
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

// ScoreResult 评分结果
type ScoreResult struct {
	Correct int
	Total   int
	Message string
}

// Perfect 全部答对
func (r *ScoreResult) Perfect() bool {
	return r.Total > 0 && r.Correct == r.Total
}

// Score 本地比对明文答案评分
func Score(quiz *Quiz, answers []string) (*ScoreResult, error) {
	if len(answers) != len(quiz.Questions) {
		return nil, types.NewValidationError(types.CodeAnswersIncomplete, MsgAnswerAll)
	}
	for _, a := range answers {
		if a == "" {
			return nil, types.NewValidationError(types.CodeAnswersIncomplete, MsgAnswerAll)
		}
	}

	res := &ScoreResult{Total: len(quiz.Questions)}
	for i, q := range quiz.Questions {
		if answers[i] == q.Correct {
			res.Correct++
		}
	}
	if res.Perfect() {
		res.Message = msgPerfect
	} else {
		res.Message = fmt.Sprintf(msgPartial, res.Correct, res.Total)
	}
	return res, nil
}
