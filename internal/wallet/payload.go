package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"verox/go-wallet/internal/securestore"
)

const fingerprintPrefix = "vx1"

// Payload is the plaintext sealed inside a keystore blob.
type Payload struct {
	Address    string    `json:"address"`
	PrivateKey string    `json:"private_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// Wallet is an unlocked wallet. It holds key material and must not outlive
// the operation that needed it.
type Wallet struct {
	Address   string
	Path      string
	CreatedAt time.Time
	key       *ecdsa.PrivateKey
}

// Summary is the public view of a wallet, safe to print or send.
type Summary struct {
	Address     string `json:"address" yaml:"address"`
	Path        string `json:"path" yaml:"path"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}

// PrivateKeyHex returns the 0x-prefixed 32-byte secret.
func (w *Wallet) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(w.key))
}

func (w *Wallet) Summary() Summary {
	return Summary{Address: w.Address, Path: w.Path, Fingerprint: Fingerprint(w.Address)}
}

// Fingerprint is a short, stable identifier for an address: "vx1" followed
// by base58 of the first 10 bytes of its blake2b-256 digest.
func Fingerprint(address string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(address))))
	return fingerprintPrefix + base58.Encode(sum[:10])
}

func newPayload(key *ecdsa.PrivateKey, createdAt time.Time) Payload {
	return Payload{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		CreatedAt:  createdAt.UTC().Truncate(time.Second),
	}
}

// decodePayload parses plaintext and checks that the key derives the
// recorded address. Anything else means the keystore is unusable.
func decodePayload(plaintext []byte) (Payload, *ecdsa.PrivateKey, error) {
	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return Payload{}, nil, fmt.Errorf("%w: payload: %v", securestore.ErrCorruptKeystore, err)
	}
	raw, err := hexutil.Decode(strings.TrimSpace(payload.PrivateKey))
	if err != nil {
		return Payload{}, nil, fmt.Errorf("%w: private key encoding", securestore.ErrCorruptKeystore)
	}
	defer securestore.Zero(raw)
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return Payload{}, nil, fmt.Errorf("%w: private key", securestore.ErrCorruptKeystore)
	}
	if !common.IsHexAddress(payload.Address) {
		return Payload{}, nil, fmt.Errorf("%w: address", securestore.ErrCorruptKeystore)
	}
	if crypto.PubkeyToAddress(key.PublicKey) != common.HexToAddress(payload.Address) {
		return Payload{}, nil, fmt.Errorf("%w: key does not match address", securestore.ErrCorruptKeystore)
	}
	return payload, key, nil
}
