// Package quest sequences approval, submission and confirmation of on-chain
// quest actions.
//
// The state machine itself (Transition) is pure: it maps the current Machine
// and an Event to the next Machine and the Effects the Orchestrator must run.
package quest

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quesster/client-sdk-go/services/transaction"
	"github.com/quesster/client-sdk-go/types"
)

// Phase 状态机阶段
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseApproving            Phase = "approving"
	PhasePollingAllowance     Phase = "polling_allowance"
	PhaseSubmitting           Phase = "submitting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseConfirmed            Phase = "confirmed"
	PhaseFailed               Phase = "failed"
)

// InFlight 是否有未完成的意图
func (p Phase) InFlight() bool {
	switch p {
	case PhaseApproving, PhasePollingAllowance, PhaseSubmitting, PhaseAwaitingConfirmation:
		return true
	}
	return false
}

// Terminal Confirmed 或 Failed
func (p Phase) Terminal() bool {
	return p == PhaseConfirmed || p == PhaseFailed
}

// MsgBusy 已有交易在处理中
const MsgBusy = "Another transaction is still in progress."

// ErrStale 事件属于已被取代的意图
var ErrStale = errors.New("event from superseded intent")

// Machine 状态机快照
type Machine struct {
	Phase      Phase
	Kind       transaction.Kind
	Generation uint64
	Hash       common.Hash
	Points     int
	Message    string

	// Err 仅在 PhaseFailed 时非空
	Err error
	// Warning 确认后的对账告警（不视为失败）
	Warning error
}

// Event 状态机输入
type Event interface{ event() }

// Start 用户发起新操作
type Start struct {
	Intent *transaction.Intent
	// Points join 确认后计入的分数
	Points int
}

// Reset 显式回到 Idle
type Reset struct{}

// Sent 交易已广播
type Sent struct {
	Gen  uint64
	Hash common.Hash
}

// SubmitFailed 广播失败
type SubmitFailed struct {
	Gen uint64
	Err error
}

// AllowanceReady allowance 已达阈值
type AllowanceReady struct{ Gen uint64 }

// PollFailed allowance 轮询超时
type PollFailed struct {
	Gen uint64
	Err error
}

// ReceiptConfirmed 收据成功
type ReceiptConfirmed struct{ Gen uint64 }

// ReceiptFailed 回滚或未确认
type ReceiptFailed struct {
	Gen uint64
	Err error
}

// FollowUpDone 确认后的链下写入完成；Warning 非空表示需要对账
type FollowUpDone struct {
	Gen     uint64
	Warning error
}

func (Start) event()            {}
func (Reset) event()            {}
func (Sent) event()             {}
func (SubmitFailed) event()     {}
func (AllowanceReady) event()   {}
func (PollFailed) event()       {}
func (ReceiptConfirmed) event() {}
func (ReceiptFailed) event()    {}
func (FollowUpDone) event()     {}

// Effect 需要编排器执行的副作用
type Effect interface{ effect() }

// Submit 提交意图
type Submit struct {
	Gen    uint64
	Intent *transaction.Intent
}

// PollAllowance 轮询 allowance
type PollAllowance struct{ Gen uint64 }

// AwaitReceipt 等待收据
type AwaitReceipt struct {
	Gen  uint64
	Hash common.Hash
}

// SyncScore 链下记分
type SyncScore struct {
	Gen    uint64
	Points int
}

// PersistQuiz 写入社区测验列表
type PersistQuiz struct {
	Gen  uint64
	Hash common.Hash
}

// Refresh 刷新缓存的链上读状态
type Refresh struct{ Gen uint64 }

func (Submit) effect()        {}
func (PollAllowance) effect() {}
func (AwaitReceipt) effect()  {}
func (SyncScore) effect()     {}
func (PersistQuiz) effect()   {}
func (Refresh) effect()       {}

var confirmedMessages = map[transaction.Kind]string{
	transaction.KindApprove:    "Approval successful! You can now join.",
	transaction.KindJoin:       "Success! You have joined the quest.",
	transaction.KindCreate:     "Quiz Created Successfully!",
	transaction.KindMint:       "Badge Minted! Pro Mode Unlocked.",
	transaction.KindDistribute: "Rewards distributed.",
	transaction.KindWithdraw:   "Pot withdrawn.",
}

// Transition 纯状态迁移函数
//
// A Start from a terminal phase implicitly resets to Idle first. While an
// intent is in flight Start and Reset are rejected with a KindBusy error and
// the machine is returned unchanged. Events carrying another generation are
// rejected with ErrStale.
func Transition(m Machine, ev Event) (Machine, []Effect, error) {
	switch e := ev.(type) {
	case Start:
		return start(m, e)
	case Reset:
		if m.Phase.InFlight() {
			return m, nil, busy()
		}
		return Machine{Phase: PhaseIdle, Generation: m.Generation}, nil, nil
	}

	gen, ok := generationOf(ev)
	if !ok {
		return m, nil, fmt.Errorf("unknown event %T", ev)
	}
	if gen != m.Generation {
		return m, nil, ErrStale
	}

	switch e := ev.(type) {
	case Sent:
		switch m.Phase {
		case PhaseApproving:
			m.Phase = PhasePollingAllowance
			m.Hash = e.Hash
			m.Message = "Sent! Waiting for confirmation..."
			return m, []Effect{PollAllowance{Gen: m.Generation}}, nil
		case PhaseSubmitting:
			m.Phase = PhaseAwaitingConfirmation
			m.Hash = e.Hash
			m.Message = "Transaction Sent! Waiting for confirmation..."
			return m, []Effect{AwaitReceipt{Gen: m.Generation, Hash: e.Hash}}, nil
		}

	case SubmitFailed:
		if m.Phase == PhaseApproving || m.Phase == PhaseSubmitting {
			return fail(m, e.Err), nil, nil
		}

	case AllowanceReady:
		if m.Phase == PhasePollingAllowance {
			return confirm(m), []Effect{Refresh{Gen: m.Generation}}, nil
		}

	case PollFailed:
		if m.Phase == PhasePollingAllowance {
			return fail(m, e.Err), nil, nil
		}

	case ReceiptConfirmed:
		if m.Phase == PhaseAwaitingConfirmation {
			return confirm(m), followUps(m), nil
		}

	case ReceiptFailed:
		if m.Phase == PhaseAwaitingConfirmation {
			return fail(m, e.Err), []Effect{Refresh{Gen: m.Generation}}, nil
		}

	case FollowUpDone:
		if m.Phase == PhaseConfirmed {
			if e.Warning != nil {
				m.Warning = e.Warning
				m.Message = types.UserMessage(e.Warning)
			}
			return m, nil, nil
		}
	}

	return m, nil, fmt.Errorf("invalid event %T in phase %s", ev, m.Phase)
}

func start(m Machine, e Start) (Machine, []Effect, error) {
	if m.Phase.InFlight() {
		return m, nil, busy()
	}
	if e.Intent == nil {
		return m, nil, errors.New("start without intent")
	}

	next := Machine{
		Phase:      PhaseSubmitting,
		Kind:       e.Intent.Kind,
		Generation: m.Generation + 1,
		Points:     e.Points,
		Message:    "Submitting...",
	}
	if e.Intent.Kind == transaction.KindApprove {
		next.Phase = PhaseApproving
		next.Message = "Approving entry fee..."
	}
	return next, []Effect{Submit{Gen: next.Generation, Intent: e.Intent}}, nil
}

func followUps(m Machine) []Effect {
	refresh := Refresh{Gen: m.Generation}
	switch m.Kind {
	case transaction.KindJoin:
		return []Effect{SyncScore{Gen: m.Generation, Points: m.Points}, refresh}
	case transaction.KindCreate:
		return []Effect{PersistQuiz{Gen: m.Generation, Hash: m.Hash}, refresh}
	}
	return []Effect{refresh}
}

func confirm(m Machine) Machine {
	m.Phase = PhaseConfirmed
	m.Message = confirmedMessages[m.Kind]
	m.Err = nil
	return m
}

func fail(m Machine, err error) Machine {
	if _, ok := types.IsQuestError(err); !ok {
		err = types.NewQuestError(types.KindNetwork, types.CodeRPCError, types.UserMessage(err), err)
	}
	m.Phase = PhaseFailed
	m.Err = err
	m.Message = types.UserMessage(err)
	return m
}

func busy() error {
	return types.NewQuestError(types.KindBusy, types.CodeIntentInFlight, MsgBusy, nil)
}

func generationOf(ev Event) (uint64, bool) {
	switch e := ev.(type) {
	case Sent:
		return e.Gen, true
	case SubmitFailed:
		return e.Gen, true
	case AllowanceReady:
		return e.Gen, true
	case PollFailed:
		return e.Gen, true
	case ReceiptConfirmed:
		return e.Gen, true
	case ReceiptFailed:
		return e.Gen, true
	case FollowUpDone:
		return e.Gen, true
	}
	return 0, false
}
