package allowance

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quesster/client-sdk-go/types"
)

var (
	owner   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender = common.HexToAddress("0xb1aAe9a1480c685375fcBC5072Ccc9f3EFd5c51C")
)

// scripted reports below for the first k reads and threshold afterwards.
type scripted struct {
	threshold *big.Int
	k         int
	calls     int
	failOn    map[int]bool
}

func (s *scripted) ReadAllowance(ctx context.Context, o, sp common.Address) (*big.Int, error) {
	s.calls++
	if s.failOn[s.calls] {
		return nil, errors.New("rpc unavailable")
	}
	if s.k >= 0 && s.calls > s.k {
		return new(big.Int).Set(s.threshold), nil
	}
	return new(big.Int).Sub(s.threshold, big.NewInt(1)), nil
}

func noSleep(slept *[]time.Duration) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func request(threshold *big.Int, max int) PollRequest {
	return PollRequest{Owner: owner, Spender: spender, Threshold: threshold, MaxAttempts: max, Interval: 2 * time.Second}
}

func TestPoll_SucceedsWithinKPlusOne(t *testing.T) {
	threshold := big.NewInt(100)
	for k := 0; k < 5; k++ {
		oracle := &scripted{threshold: threshold, k: k}
		var slept []time.Duration

		got, err := Poll(context.Background(), oracle, request(threshold, 5), noSleep(&slept))
		require.NoError(t, err, "k=%d", k)
		assert.Equal(t, k+1, oracle.calls)
		assert.Len(t, slept, k+1)
		assert.Equal(t, 0, got.Amount.Cmp(threshold))
		assert.Equal(t, owner, got.Owner)
		assert.Equal(t, spender, got.Spender)
	}
}

func TestPoll_TimeoutAfterExactlyMaxAttempts(t *testing.T) {
	oracle := &scripted{threshold: big.NewInt(100), k: -1}
	var slept []time.Duration

	_, err := Poll(context.Background(), oracle, request(big.NewInt(100), 20), noSleep(&slept))
	require.Error(t, err)
	assert.Equal(t, 20, oracle.calls)
	assert.Len(t, slept, 20)

	qe, ok := types.IsQuestError(err)
	require.True(t, ok)
	assert.Equal(t, types.KindTimeout, qe.Kind)
	assert.Equal(t, TimeoutMessage, qe.UserMessage)
}

func TestPoll_SwallowsReadErrors(t *testing.T) {
	threshold := big.NewInt(7)
	oracle := &scripted{threshold: threshold, k: 2, failOn: map[int]bool{1: true, 2: true}}
	var attempts []int
	req := request(threshold, 5)
	req.OnAttempt = func(attempt int, amount *big.Int, err error) { attempts = append(attempts, attempt) }
	var slept []time.Duration

	got, err := Poll(context.Background(), oracle, req, noSleep(&slept))
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Amount.Int64())
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestPoll_ErrorsOnlyStillTimesOut(t *testing.T) {
	oracle := ReaderFunc(func(ctx context.Context, o, s common.Address) (*big.Int, error) {
		return nil, errors.New("boom")
	})
	var slept []time.Duration

	_, err := Poll(context.Background(), oracle, request(big.NewInt(1), 3), noSleep(&slept))
	assert.Equal(t, types.KindTimeout, types.KindOf(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestPoll_InvalidRequest(t *testing.T) {
	var slept []time.Duration
	_, err := Poll(context.Background(), &scripted{}, request(big.NewInt(1), 0), noSleep(&slept))
	assert.Error(t, err)

	_, err = Poll(context.Background(), &scripted{}, request(nil, 1), noSleep(&slept))
	assert.Error(t, err)
}

// allowance 0, threshold 0.1 cUSD, reached on the third read.
func TestPoll_ApprovalScenarioWithFakeClock(t *testing.T) {
	fee := new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)
	calls := 0
	oracle := ReaderFunc(func(ctx context.Context, o, s common.Address) (*big.Int, error) {
		calls++
		if calls >= 3 {
			return fee, nil
		}
		return big.NewInt(0), nil
	})

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		a   *Allowance
		err error
	}
	done := make(chan result, 1)
	go func() {
		a, err := Poll(ctx, oracle, request(fee, 20), ClockSleeper(clock))
		done <- result{a, err}
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(2 * time.Second)
	}

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.a.Sufficient(fee))
	assert.Equal(t, 3, calls)
}

func TestClockSleeper_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ClockSleeper(clockwork.NewFakeClock())(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
