package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorKind 错误分类
//
// Every failure that crosses the orchestrator boundary is mapped onto one of
// these kinds before it is shown to the user.
type ErrorKind string

const (
	// KindValidation pre-submission input defects; never sent on-chain.
	KindValidation ErrorKind = "validation"
	// KindWallet wallet not connected or signature rejected; no retry.
	KindWallet ErrorKind = "wallet"
	// KindFunds insufficient balance; surfaced with a top-up remediation.
	KindFunds ErrorKind = "funds"
	// KindTimeout allowance polling exhausted.
	KindTimeout ErrorKind = "timeout"
	// KindReceipt transaction reverted or never confirmed.
	KindReceipt ErrorKind = "receipt"
	// KindReconciliation on-chain success, off-chain write failed.
	KindReconciliation ErrorKind = "reconciliation"
	// KindNetwork RPC or transport failure; caller may retry manually.
	KindNetwork ErrorKind = "network"
	// KindBusy another intent is already in flight.
	KindBusy ErrorKind = "busy"
)

// Error codes
const (
	CodeAnswersIncomplete     = "ANSWERS_INCOMPLETE"
	CodeQuestionIncomplete    = "QUESTION_INCOMPLETE"
	CodeCorrectAnswerMismatch = "CORRECT_ANSWER_NOT_AN_OPTION"
	CodeInvalidFee            = "INVALID_ENTRY_FEE"
	CodeInvalidDuration       = "INVALID_DURATION"
	CodeInvalidQuest          = "INVALID_QUEST_ID"
	CodeProModeLocked         = "PRO_MODE_LOCKED"
	CodeApprovalRequired      = "APPROVAL_REQUIRED"
	CodeAlreadyJoined         = "ALREADY_JOINED"
	CodeWalletNotConnected    = "WALLET_NOT_CONNECTED"
	CodeUserRejected          = "USER_REJECTED"
	CodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	CodeApprovalTimeout       = "APPROVAL_TIMEOUT"
	CodeTxReverted            = "TX_REVERTED"
	CodeTxNotConfirmed        = "TX_NOT_CONFIRMED"
	CodeListingWriteFailed    = "LISTING_WRITE_FAILED"
	CodeScoreSyncFailed       = "SCORE_SYNC_FAILED"
	CodeRPCError              = "RPC_ERROR"
	CodeIntentInFlight        = "INTENT_IN_FLIGHT"
)

// QuestError 统一错误类型
//
// UserMessage is safe to render as-is; Detail carries the technical cause.
type QuestError struct {
	Kind        ErrorKind
	Code        string
	UserMessage string
	Detail      string
	TraceID     string
	Timestamp   string
	Err         error
}

func (e *QuestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.UserMessage, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.UserMessage)
}

func (e *QuestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may offer a manual retry.
func (e *QuestError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindReceipt:
		return true
	}
	return false
}

// NewQuestError 创建 QuestError
func NewQuestError(kind ErrorKind, code, userMessage string, cause error) *QuestError {
	qe := &QuestError{
		Kind:        kind,
		Code:        code,
		UserMessage: userMessage,
		TraceID:     uuid.NewString(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Err:         cause,
	}
	if cause != nil {
		qe.Detail = cause.Error()
	}
	return qe
}

// NewValidationError 创建校验错误（不会上链）
func NewValidationError(code, userMessage string) *QuestError {
	return NewQuestError(KindValidation, code, userMessage, nil)
}

// IsQuestError 检查错误链中是否包含 QuestError
func IsQuestError(err error) (*QuestError, bool) {
	var qe *QuestError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err carries no QuestError.
func KindOf(err error) ErrorKind {
	if qe, ok := IsQuestError(err); ok {
		return qe.Kind
	}
	return ""
}

// UserMessage returns the user-facing text for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if qe, ok := IsQuestError(err); ok {
		return qe.UserMessage
	}
	return "Error: " + err.Error()
}
