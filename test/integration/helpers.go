package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quesster/client-sdk-go/services/quest"
	"github.com/quesster/client-sdk-go/services/transaction"
)

// WaitForTicket 等待后台确认流程结束
func WaitForTicket(t *testing.T, ticket *quest.Ticket) *quest.Result {
	t.Helper()
	require.NotNil(t, ticket)

	ctx, cancel := context.WithTimeout(context.Background(), TransactionConfirmTimeout)
	defer cancel()
	res, err := ticket.Wait(ctx)
	require.NoError(t, err, "等待交易确认失败: %s", ticket.Hash.Hex())
	return res
}

// VerifyConfirmed 验证交易成功
func VerifyConfirmed(t *testing.T, res *quest.Result) {
	t.Helper()
	require.NotNil(t, res, "结果为空")
	assert.Equal(t, transaction.StatusConfirmed, res.Status, "交易状态不是 confirmed")
	if res.Receipt != nil {
		assert.True(t, res.Receipt.Succeeded(), "交易已回滚")
	}
}
