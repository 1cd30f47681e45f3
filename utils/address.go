package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress 解析 0x 十六进制地址
//
// Mixed-case input must carry a valid EIP-55 checksum; the zero address is
// rejected.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q: expected 40 hex characters", s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("invalid address %q: zero address", s)
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.Hex() != "0x"+body {
			return common.Address{}, fmt.Errorf("invalid address %q: bad checksum", s)
		}
	}
	return addr, nil
}

// MustParseAddress 解析地址，失败时 panic（仅用于常量）
func MustParseAddress(s string) common.Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// ShortAddress 0x1234…abcd
func ShortAddress(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}
