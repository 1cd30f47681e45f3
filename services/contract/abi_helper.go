// Package contract reads quest, token and badge state over eth_call.
package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/utils"
)

// view 执行只读调用并返回原始返回数据
func (s *contractService) view(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := utils.PackCall(contractABI, method, args...)
	if err != nil {
		return nil, err
	}
	out, err := s.eth.CallContract(ctx, &client.CallMsg{To: to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("call %s failed: %w", method, err)
	}
	return out, nil
}

func (s *contractService) viewBigInt(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	out, err := s.view(ctx, to, contractABI, method, args...)
	if err != nil {
		return nil, err
	}
	return utils.UnpackBigInt(contractABI, method, out)
}

func (s *contractService) viewBool(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (bool, error) {
	out, err := s.view(ctx, to, contractABI, method, args...)
	if err != nil {
		return false, err
	}
	return utils.UnpackBool(contractABI, method, out)
}
