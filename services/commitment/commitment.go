// Package commitment hashes plaintext answers into on-chain commitments.
package commitment

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Commitment keccak256 digest of one answer
type Commitment [32]byte

// Hex 0x 前缀十六进制
func (c Commitment) Hex() string {
	return common.Hash(c).Hex()
}

// Commit 计算单个答案的承诺值（keccak256(UTF-8 bytes)）
//
// The input is hashed verbatim: no trimming or case folding.
func Commit(plaintext string) Commitment {
	return Commitment(crypto.Keccak256Hash([]byte(plaintext)))
}

// CommitAll 按顺序计算承诺值；output[i] 对应 answers[i]
func CommitAll(answers []string) []Commitment {
	out := make([]Commitment, len(answers))
	for i, a := range answers {
		out[i] = Commit(a)
	}
	return out
}

// Bytes32 转换为 ABI bytes32[] 参数
func Bytes32(commits []Commitment) [][32]byte {
	out := make([][32]byte, len(commits))
	for i, c := range commits {
		out[i] = c
	}
	return out
}
