// Package allowance waits for an ERC-20 approval to become observable.
package allowance

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"github.com/quesster/client-sdk-go/types"
)

// TimeoutMessage 轮询耗尽时展示给用户的提示
const TimeoutMessage = "Approval timed out. Please refresh."

// Reader allowance 查询接口
type Reader interface {
	ReadAllowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}

// ReaderFunc 函数适配器
type ReaderFunc func(ctx context.Context, owner, spender common.Address) (*big.Int, error)

// ReadAllowance implements Reader.
func (f ReaderFunc) ReadAllowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return f(ctx, owner, spender)
}

// Allowance 授权额度
type Allowance struct {
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
}

// Sufficient amount >= threshold
func (a *Allowance) Sufficient(threshold *big.Int) bool {
	return a != nil && a.Amount != nil && a.Amount.Cmp(threshold) >= 0
}

// PollRequest 轮询参数
type PollRequest struct {
	Owner       common.Address
	Spender     common.Address
	Threshold   *big.Int
	MaxAttempts int
	Interval    time.Duration

	// OnAttempt 每次查询后回调（可选），err 为本次查询错误
	OnAttempt func(attempt int, amount *big.Int, err error)
}

// Sleeper 可替换的等待函数
type Sleeper func(ctx context.Context, d time.Duration) error

// ClockSleeper 基于 clockwork.Clock 的 Sleeper
func ClockSleeper(clock clockwork.Clock) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		select {
		case <-clock.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Poll 轮询 allowance 直到达到阈值
//
// Each attempt sleeps Interval and then queries. Query errors count as an
// attempt and are otherwise ignored. After MaxAttempts without reaching the
// threshold a KindTimeout QuestError is returned.
func Poll(ctx context.Context, reader Reader, req PollRequest, sleep Sleeper) (*Allowance, error) {
	if req.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", req.MaxAttempts)
	}
	if req.Threshold == nil {
		return nil, fmt.Errorf("threshold is required")
	}

	var lastErr error
	for attempt := 1; attempt <= req.MaxAttempts; attempt++ {
		if err := sleep(ctx, req.Interval); err != nil {
			return nil, err
		}

		amount, err := reader.ReadAllowance(ctx, req.Owner, req.Spender)
		if req.OnAttempt != nil {
			req.OnAttempt(attempt, amount, err)
		}
		if err != nil {
			lastErr = err
			continue
		}

		a := &Allowance{Owner: req.Owner, Spender: req.Spender, Amount: amount}
		if a.Sufficient(req.Threshold) {
			return a, nil
		}
	}

	cause := fmt.Errorf("allowance below %s after %d attempts", req.Threshold, req.MaxAttempts)
	if lastErr != nil {
		cause = fmt.Errorf("%w (last read error: %v)", cause, lastErr)
	}
	return nil, types.NewQuestError(types.KindTimeout, types.CodeApprovalTimeout, TimeoutMessage, cause)
}
