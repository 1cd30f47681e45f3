package wallet

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	"github.com/quesster/client-sdk-go/client"
)

// LoadKeystore 从 Web3 Secret Storage (v3) 文件加载钱包
func LoadKeystore(path, password string, eth client.EthClient, chainID *big.Int) (*KeyWallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return newKeyWallet(key.PrivateKey, eth, chainID), nil
}

// SaveKeystore 将钱包私钥加密写入 dir，返回文件路径
//
// Uses light scrypt parameters; intended for development accounts.
func SaveKeystore(w *KeyWallet, dir, password string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create keystore dir: %w", err)
	}
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	account, err := ks.ImportECDSA(w.privateKey, password)
	if err != nil {
		return "", fmt.Errorf("import key: %w", err)
	}
	return account.URL.Path, nil
}
