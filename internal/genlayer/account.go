package genlayer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a secp256k1 key pair used to sign state-changing calls.
type Account struct {
	key     *ecdsa.PrivateKey
	Address common.Address
}

// GeneratePrivateKey returns a fresh 0x-prefixed hex private key.
func GeneratePrivateKey() (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate private key: %w", err)
	}
	return hexutil.Encode(crypto.FromECDSA(key)), nil
}

// ParsePrivateKey builds an account from a 0x-prefixed hex private key.
func ParsePrivateKey(hexKey string) (*Account, error) {
	if !strings.HasPrefix(hexKey, "0x") {
		return nil, fmt.Errorf("private key must be 0x-prefixed")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Account{
		key:     key,
		Address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// EnsurePrivateKey returns hexKey when it is a usable key and a newly
// generated one otherwise. The boolean reports whether a new key was made.
func EnsurePrivateKey(hexKey string) (string, bool, error) {
	if hexKey != "" && strings.HasPrefix(hexKey, "0x") {
		if _, err := ParsePrivateKey(hexKey); err == nil {
			return hexKey, false, nil
		}
	}
	key, err := GeneratePrivateKey()
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}
