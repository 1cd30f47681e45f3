package utils

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

func TestPackCall_Selectors(t *testing.T) {
	spender := common.HexToAddress("0xb1aAe9a1480c685375fcBC5072Ccc9f3EFd5c51C")
	answers := [][32]byte{crypto.Keccak256Hash([]byte("Paris"))}

	tests := []struct {
		name string
		pack func() ([]byte, error)
		sig  string
		size int
	}{
		{
			name: "approve",
			pack: func() ([]byte, error) { return PackCall(ERC20ABI, MethodApprove, spender, big.NewInt(1)) },
			sig:  "approve(address,uint256)",
			size: 4 + 64,
		},
		{
			name: "joinQuest",
			pack: func() ([]byte, error) { return PackCall(QuestGameABI, MethodJoinQuest, answers) },
			sig:  "joinQuest(bytes32[])",
			size: 4 + 32*3,
		},
		{
			name: "createCommunityQuest",
			pack: func() ([]byte, error) {
				return PackCall(QuestGameABI, MethodCreateCommunityQuest, big.NewInt(1), big.NewInt(24), answers)
			},
			sig:  "createCommunityQuest(uint256,uint256,bytes32[])",
			size: 4 + 32*5,
		},
		{
			name: "withdraw",
			pack: func() ([]byte, error) { return PackCall(QuestGameABI, MethodWithdraw) },
			sig:  "withdraw()",
			size: 4,
		},
		{
			name: "mintBadge",
			pack: func() ([]byte, error) { return PackCall(BadgesABI, MethodMintBadge) },
			sig:  "mintBadge()",
			size: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.pack()
			if err != nil {
				t.Fatalf("PackCall() error = %v", err)
			}
			if !bytes.Equal(data[:4], selector(tt.sig)) {
				t.Errorf("selector = %x, want %x", data[:4], selector(tt.sig))
			}
			if len(data) != tt.size {
				t.Errorf("len = %d, want %d", len(data), tt.size)
			}
		})
	}
}

func TestPackCall_UnknownMethod(t *testing.T) {
	if _, err := PackCall(BadgesABI, MethodJoinQuest); err == nil {
		t.Error("PackCall() expected error for method outside ABI")
	}
}

func TestUnpack(t *testing.T) {
	word := common.LeftPadBytes(big.NewInt(42).Bytes(), 32)
	v, err := UnpackBigInt(ERC20ABI, MethodAllowance, word)
	if err != nil || v.Int64() != 42 {
		t.Errorf("UnpackBigInt() = %v, %v", v, err)
	}

	joined, err := UnpackBool(QuestGameABI, MethodHasJoinedCurrent, common.LeftPadBytes([]byte{1}, 32))
	if err != nil || !joined {
		t.Errorf("UnpackBool() = %v, %v", joined, err)
	}

	if _, err := UnpackBigInt(ERC20ABI, MethodAllowance, []byte{0x01}); err == nil {
		t.Error("UnpackBigInt() expected error for short data")
	}
}
