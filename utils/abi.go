package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names
const (
	MethodAllowance            = "allowance"
	MethodApprove              = "approve"
	MethodBalanceOf            = "balanceOf"
	MethodJoinQuest            = "joinQuest"
	MethodCreateCommunityQuest = "createCommunityQuest"
	MethodDistributeRewards    = "distributeRewards"
	MethodWithdraw             = "withdraw"
	MethodHasJoinedCurrent     = "hasJoinedCurrentQuest"
	MethodMintBadge            = "mintBadge"
)

const erc20ABIJSON = `[
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const questGameABIJSON = `[
	{"type":"function","name":"joinQuest","stateMutability":"nonpayable","inputs":[{"name":"_hashedAnswers","type":"bytes32[]"}],"outputs":[]},
	{"type":"function","name":"createCommunityQuest","stateMutability":"nonpayable","inputs":[{"name":"_entryFee","type":"uint256"},{"name":"_durationHours","type":"uint256"},{"name":"_hashedAnswers","type":"bytes32[]"}],"outputs":[]},
	{"type":"function","name":"distributeRewards","stateMutability":"nonpayable","inputs":[{"name":"_questId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"hasJoinedCurrentQuest","stateMutability":"view","inputs":[{"name":"_player","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

const badgesABIJSON = `[
	{"type":"function","name":"mintBadge","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Parsed contract ABIs
var (
	ERC20ABI     = mustParseABI(erc20ABIJSON)
	QuestGameABI = mustParseABI(questGameABIJSON)
	BadgesABI    = mustParseABI(badgesABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse contract ABI: %v", err))
	}
	return parsed
}

// PackCall 编码合约调用 calldata（4 字节 selector + 参数）
func PackCall(contractABI abi.ABI, method string, args ...interface{}) ([]byte, error) {
	if _, ok := contractABI.Methods[method]; !ok {
		return nil, fmt.Errorf("method %q not in ABI", method)
	}
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s failed: %w", method, err)
	}
	return data, nil
}

// UnpackBigInt 解码单个 uint256 返回值
func UnpackBigInt(contractABI abi.ABI, method string, data []byte) (*big.Int, error) {
	out, err := unpackSingle(contractABI, method, data)
	if err != nil {
		return nil, err
	}
	v, ok := out.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: expected uint256, got %T", method, out)
	}
	return v, nil
}

// UnpackBool 解码单个 bool 返回值
func UnpackBool(contractABI abi.ABI, method string, data []byte) (bool, error) {
	out, err := unpackSingle(contractABI, method, data)
	if err != nil {
		return false, err
	}
	v, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("unpack %s: expected bool, got %T", method, out)
	}
	return v, nil
}

func unpackSingle(contractABI abi.ABI, method string, data []byte) (interface{}, error) {
	values, err := contractABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s failed: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}
	return values[0], nil
}
