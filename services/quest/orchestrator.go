package quest

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/sasha-s/go-deadlock"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/metrics"
	"github.com/quesster/client-sdk-go/services"
	"github.com/quesster/client-sdk-go/services/allowance"
	"github.com/quesster/client-sdk-go/services/commitment"
	"github.com/quesster/client-sdk-go/services/community"
	"github.com/quesster/client-sdk-go/services/contract"
	"github.com/quesster/client-sdk-go/services/profile"
	"github.com/quesster/client-sdk-go/services/quiz"
	"github.com/quesster/client-sdk-go/services/transaction"
	"github.com/quesster/client-sdk-go/types"
	"github.com/quesster/client-sdk-go/wallet"
)

// User-facing pre-submission messages
const (
	MsgAnswerAll        = "Please answer all questions!"
	MsgApprovalRequired = "Approve the entry fee before joining."
	MsgAlreadyJoined    = "You have already joined today's quest."
	MsgProModeLocked    = "You need a Quesster Genius Badge NFT to access Pro Mode."
	MsgScoreSyncFailed  = "Joined on-chain, but your score could not be saved yet."
	MsgListingFailed    = "Quiz created on-chain, but saving it to the community list failed."
)

// Submitter 交易提交与确认（transaction.Service）
type Submitter interface {
	Submit(ctx context.Context, w *wallet.Context, intent *transaction.Intent) (common.Hash, error)
	AwaitReceipt(ctx context.Context, hash common.Hash) (*transaction.Outcome, error)
}

// ChainReader 链上读接口（contract.Service）
type ChainReader interface {
	allowance.Reader
	ReadHasJoined(ctx context.Context, player common.Address) (bool, error)
	ReadBadgeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	ReadState(ctx context.Context, player common.Address) (*contract.State, error)
}

// ScoreSyncer 链下记分（profile.Service）
type ScoreSyncer interface {
	SyncScore(ctx context.Context, player common.Address, points int) (*profile.SyncResult, error)
}

// ListingPublisher 社区测验列表写入（community.Service）
type ListingPublisher interface {
	Publish(ctx context.Context, creator common.Address, title string, questions []community.Question, txHash common.Hash) (*community.Quiz, error)
}

// CreateRequest 创建社区任务
type CreateRequest struct {
	Title         string
	EntryFee      *big.Int
	DurationHours uint64
	Questions     []community.Question
}

// Result 一次操作的最终结果
type Result struct {
	Kind       transaction.Kind
	Generation uint64
	Hash       common.Hash
	Status     transaction.Status
	Receipt    *client.Receipt
	Allowance  *allowance.Allowance
	Score      *profile.SyncResult
	Quiz       *community.Quiz
	Message    string

	// Err 失败原因（与 Wait 的返回值相同）
	Err error
	// Warning 对账告警，操作本身已成功
	Warning error
}

// Ticket 已广播操作的句柄
type Ticket struct {
	Kind       transaction.Kind
	Hash       common.Hash
	Generation uint64

	done   chan struct{}
	result *Result
}

// Done 完成时关闭
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait 等待确认及后续链下写入完成
//
// Cancelling ctx only stops waiting; the operation itself keeps running.
func (t *Ticket) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-t.done:
		return t.result, t.result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// job 单个意图的执行上下文
type job struct {
	wallet  *wallet.Context
	intent  *transaction.Intent
	draft   *CreateRequest
	started time.Time
	ticket  *Ticket
	result  *Result
}

// Orchestrator 任务编排器
//
// Holds at most one in-flight intent. Submission runs on the caller's
// goroutine; confirmation and follow-ups run in the background on a context
// detached from the caller's cancellation.
type Orchestrator struct {
	mu      deadlock.Mutex
	machine Machine
	cached  *contract.State

	config   *services.Config
	builder  *transaction.Builder
	tx       Submitter
	reader   ChainReader
	scores   ScoreSyncer
	listings ListingPublisher
	clock    clockwork.Clock
	logger   client.Logger
	metrics  *metrics.Metrics
}

// Option 编排器选项
type Option func(*Orchestrator)

// WithClock 替换时钟（allowance 轮询与计时）
func WithClock(clock clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithLogger 设置日志
func WithLogger(logger client.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithScoreSyncer 设置链下记分
func WithScoreSyncer(s ScoreSyncer) Option {
	return func(o *Orchestrator) { o.scores = s }
}

// WithListingPublisher 设置社区测验列表写入
func WithListingPublisher(p ListingPublisher) Option {
	return func(o *Orchestrator) { o.listings = p }
}

// NewOrchestrator 创建编排器
func NewOrchestrator(config *services.Config, tx Submitter, reader ChainReader, opts ...Option) *Orchestrator {
	if config == nil {
		config = services.DefaultConfig()
	}
	o := &Orchestrator{
		machine: Machine{Phase: PhaseIdle},
		config:  config,
		builder: transaction.NewBuilder(config),
		tx:      tx,
		reader:  reader,
		clock:   clockwork.NewRealClock(),
		logger:  client.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot 当前状态副本
func (o *Orchestrator) Snapshot() Machine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine
}

// CachedState 最近一次刷新的链上读状态（可能为 nil）
func (o *Orchestrator) CachedState() *contract.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cached
}

// Reset 从终态回到 Idle；有在途意图时返回 KindBusy
func (o *Orchestrator) Reset() error {
	_, err := o.apply(Reset{})
	return err
}

// Refresh 重新读取 allowance / hasJoined / 徽章余额
func (o *Orchestrator) Refresh(ctx context.Context, player common.Address) (*contract.State, error) {
	state, err := o.reader.ReadState(ctx, player)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.cached = state
	o.mu.Unlock()
	return state, nil
}

// refreshFor 操作结束后的刷新；只有 gen 仍是当前代时才写入缓存
func (o *Orchestrator) refreshFor(ctx context.Context, gen uint64, player common.Address) error {
	state, err := o.reader.ReadState(ctx, player)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.machine.Generation != gen {
		o.logger.Debug("discarding stale refresh", "generation", gen, "current", o.machine.Generation)
		return nil
	}
	o.cached = state
	return nil
}

// Approve 授权游戏合约扣取入场费，并轮询直到 allowance 生效
func (o *Orchestrator) Approve(ctx context.Context, w *wallet.Context) (*Ticket, error) {
	intent, err := o.builder.Approve(o.config.EntryFee)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, &job{wallet: w, intent: intent}, 0)
}

// Join 提交今日答案承诺
//
// questions are today's questions for mode; an empty slice means
// quiz.QuestionsPerDay slots. There must be exactly one non-empty answer per
// question. The entry-fee allowance must already be in place, and Pro mode
// requires a badge.
func (o *Orchestrator) Join(ctx context.Context, w *wallet.Context, mode quiz.Mode, questions []quiz.Question, answers []string) (*Ticket, error) {
	// 1. 校验答案
	slots := len(questions)
	if slots == 0 {
		slots = quiz.QuestionsPerDay
	}
	if len(answers) != slots {
		return nil, types.NewValidationError(types.CodeAnswersIncomplete, MsgAnswerAll)
	}
	for _, a := range answers {
		if a == "" {
			return nil, types.NewValidationError(types.CodeAnswersIncomplete, MsgAnswerAll)
		}
	}
	if err := o.ensureIdle(); err != nil {
		return nil, err
	}
	if !w.Connected() {
		return nil, transaction.Classify(wallet.ErrNotConnected)
	}

	// 2. 链上前置条件
	if err := o.checkJoinable(ctx, w.Address, mode); err != nil {
		return nil, err
	}

	// 3. 承诺并提交
	intent, err := o.builder.Join(commitment.CommitAll(answers))
	if err != nil {
		return nil, err
	}
	return o.run(ctx, &job{wallet: w, intent: intent}, mode.Points())
}

func (o *Orchestrator) checkJoinable(ctx context.Context, player common.Address, mode quiz.Mode) error {
	amount, err := o.reader.ReadAllowance(ctx, player, o.config.GameAddress)
	if err != nil {
		return transaction.Classify(err)
	}
	if amount.Cmp(o.config.EntryFee) < 0 {
		return types.NewValidationError(types.CodeApprovalRequired, MsgApprovalRequired)
	}

	joined, err := o.reader.ReadHasJoined(ctx, player)
	if err != nil {
		return transaction.Classify(err)
	}
	if joined {
		return types.NewValidationError(types.CodeAlreadyJoined, MsgAlreadyJoined)
	}

	if mode.RequiresBadge() {
		badges, err := o.reader.ReadBadgeBalance(ctx, player)
		if err != nil {
			return transaction.Classify(err)
		}
		if badges.Sign() <= 0 {
			return types.NewValidationError(types.CodeProModeLocked, MsgProModeLocked)
		}
	}
	return nil
}

// CreateQuest 创建社区任务；确认后写入列表
func (o *Orchestrator) CreateQuest(ctx context.Context, w *wallet.Context, req *CreateRequest) (*Ticket, error) {
	if req == nil {
		return nil, types.NewValidationError(types.CodeQuestionIncomplete, community.MsgFillAllFields)
	}
	if err := community.ValidateDraft(req.Title, req.Questions); err != nil {
		return nil, err
	}
	commits := commitment.CommitAll(community.CorrectAnswers(req.Questions))
	intent, err := o.builder.Create(req.EntryFee, req.DurationHours, commits)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, &job{wallet: w, intent: intent, draft: req}, 0)
}

// MintBadge 铸造徽章
func (o *Orchestrator) MintBadge(ctx context.Context, w *wallet.Context) (*Ticket, error) {
	intent, err := o.builder.MintBadge()
	if err != nil {
		return nil, err
	}
	return o.run(ctx, &job{wallet: w, intent: intent}, 0)
}

// DistributeRewards 管理员分发奖励
func (o *Orchestrator) DistributeRewards(ctx context.Context, w *wallet.Context, questID *big.Int) (*Ticket, error) {
	intent, err := o.builder.DistributeRewards(questID)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, &job{wallet: w, intent: intent}, 0)
}

// Withdraw 管理员提取奖池
func (o *Orchestrator) Withdraw(ctx context.Context, w *wallet.Context) (*Ticket, error) {
	intent, err := o.builder.Withdraw()
	if err != nil {
		return nil, err
	}
	return o.run(ctx, &job{wallet: w, intent: intent}, 0)
}

func (o *Orchestrator) ensureIdle() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.machine.Phase.InFlight() {
		return busy()
	}
	return nil
}

// run 提交意图；成功广播后在后台完成确认与后续步骤
func (o *Orchestrator) run(ctx context.Context, j *job, points int) (*Ticket, error) {
	effects, err := o.apply(Start{Intent: j.intent, Points: points})
	if err != nil {
		return nil, err
	}
	// Submit is always the only effect of Start.
	submit := effects[0].(Submit)
	gen := submit.Gen
	j.result = &Result{Kind: j.intent.Kind, Generation: gen}
	j.started = o.clock.Now()

	hash, err := o.tx.Submit(ctx, j.wallet, submit.Intent)
	if err != nil {
		o.metrics.Submission(string(j.intent.Kind), string(types.KindOf(err)))
		if _, applyErr := o.apply(SubmitFailed{Gen: gen, Err: err}); applyErr != nil {
			o.logger.Error("apply submit failure", "error", applyErr)
		}
		return nil, err
	}
	o.metrics.Submission(string(j.intent.Kind), "sent")

	next, err := o.apply(Sent{Gen: gen, Hash: hash})
	if err != nil {
		return nil, err
	}

	j.result.Hash = hash
	j.result.Status = transaction.StatusSent
	j.ticket = &Ticket{Kind: j.intent.Kind, Hash: hash, Generation: gen, done: make(chan struct{})}

	go o.drive(context.WithoutCancel(ctx), j, next)
	return j.ticket, nil
}

// drive 依次执行副作用并回灌事件，直到没有剩余副作用
func (o *Orchestrator) drive(ctx context.Context, j *job, effects []Effect) {
	defer func() {
		j.result.Message = o.messageFor(j.result.Generation, j.result)
		j.ticket.result = j.result
		close(j.ticket.done)
	}()

	for len(effects) > 0 {
		eff := effects[0]
		effects = effects[1:]

		ev := o.perform(ctx, j, eff)
		if ev == nil {
			continue
		}
		next, err := o.apply(ev)
		if err != nil {
			if !errors.Is(err, ErrStale) {
				o.logger.Error("orchestrator transition rejected", "event", ev, "error", err)
			}
			continue
		}
		effects = append(effects, next...)
	}
}

// perform 执行单个副作用并返回结果事件（可能为 nil）
func (o *Orchestrator) perform(ctx context.Context, j *job, eff Effect) Event {
	switch e := eff.(type) {
	case PollAllowance:
		a, err := allowance.Poll(ctx, o.reader, allowance.PollRequest{
			Owner:       j.wallet.Address,
			Spender:     o.config.GameAddress,
			Threshold:   o.config.EntryFee,
			MaxAttempts: o.config.AllowancePoll.MaxAttempts,
			Interval:    o.config.AllowancePoll.Interval,
			OnAttempt: func(attempt int, amount *big.Int, err error) {
				o.metrics.PollAttempt(pollResult(amount, err, o.config.EntryFee))
				o.logger.Debug("allowance poll", "attempt", attempt, "amount", amount, "error", err)
			},
		}, allowance.ClockSleeper(o.clock))
		o.observeConfirmation(j, err)
		if err != nil {
			j.result.Status = transaction.StatusFailed
			j.result.Err = err
			return PollFailed{Gen: e.Gen, Err: err}
		}
		j.result.Status = transaction.StatusConfirmed
		j.result.Allowance = a
		return AllowanceReady{Gen: e.Gen}

	case AwaitReceipt:
		out, err := o.tx.AwaitReceipt(ctx, e.Hash)
		o.observeConfirmation(j, err)
		if out != nil {
			j.result.Receipt = out.Receipt
			j.result.Status = out.Status
		}
		if err != nil {
			j.result.Status = transaction.StatusFailed
			j.result.Err = err
			return ReceiptFailed{Gen: e.Gen, Err: err}
		}
		return ReceiptConfirmed{Gen: e.Gen}

	case SyncScore:
		var warning error
		if o.scores != nil {
			res, err := o.scores.SyncScore(ctx, j.wallet.Address, e.Points)
			if err != nil {
				warning = o.reconcile(j, types.CodeScoreSyncFailed, MsgScoreSyncFailed, err)
			}
			j.result.Score = res
		}
		return FollowUpDone{Gen: e.Gen, Warning: warning}

	case PersistQuiz:
		var warning error
		if o.listings != nil && j.draft != nil {
			q, err := o.listings.Publish(ctx, j.wallet.Address, j.draft.Title, j.draft.Questions, e.Hash)
			if err != nil {
				warning = o.reconcile(j, types.CodeListingWriteFailed, MsgListingFailed, err)
			}
			j.result.Quiz = q
		}
		return FollowUpDone{Gen: e.Gen, Warning: warning}

	case Refresh:
		if err := o.refreshFor(ctx, e.Gen, j.wallet.Address); err != nil {
			o.logger.Warn("refresh read state failed", "error", err)
		}
		return nil
	}

	o.logger.Error("unknown effect", "effect", eff)
	return nil
}

func (o *Orchestrator) reconcile(j *job, code, msg string, cause error) error {
	warning := types.NewQuestError(types.KindReconciliation, code, msg, cause)
	j.result.Warning = warning
	o.metrics.Reconciliation(string(j.intent.Kind))
	o.logger.Warn("reconciliation required", "kind", j.intent.Kind, "hash", j.result.Hash.Hex(), "error", cause)
	return warning
}

func (o *Orchestrator) observeConfirmation(j *job, err error) {
	status := string(transaction.StatusConfirmed)
	if err != nil {
		status = string(transaction.StatusFailed)
	}
	o.metrics.Confirmation(string(j.intent.Kind), status, o.clock.Since(j.started))
}

// messageFor 结果消息；若状态机已进入下一代则根据结果本身生成
func (o *Orchestrator) messageFor(gen uint64, res *Result) string {
	o.mu.Lock()
	m := o.machine
	o.mu.Unlock()
	if m.Generation == gen {
		return m.Message
	}
	switch {
	case res.Err != nil:
		return types.UserMessage(res.Err)
	case res.Warning != nil:
		return types.UserMessage(res.Warning)
	}
	return confirmedMessages[res.Kind]
}

// apply 在锁内执行迁移并记录
func (o *Orchestrator) apply(ev Event) ([]Effect, error) {
	o.mu.Lock()
	prev := o.machine
	next, effects, err := Transition(prev, ev)
	if err == nil {
		o.machine = next
	}
	o.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrStale) {
			o.logger.Debug("discarding stale event", "event", ev, "generation", prev.Generation)
		}
		return nil, err
	}
	if prev.Phase != next.Phase {
		o.metrics.Transition(string(prev.Phase), string(next.Phase))
		o.logger.Debug("quest transition", "from", prev.Phase, "to", next.Phase, "kind", next.Kind, "generation", next.Generation)
	}
	if next.Phase == PhaseFailed && prev.Phase != PhaseFailed {
		o.logger.Warn("quest action failed", "kind", next.Kind, "error_kind", types.KindOf(next.Err), "error", next.Err)
	}
	return effects, nil
}

func pollResult(amount *big.Int, err error, threshold *big.Int) string {
	switch {
	case err != nil:
		return "error"
	case amount != nil && amount.Cmp(threshold) >= 0:
		return "ok"
	}
	return "below"
}
