package chain

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftennis/nftennis-backend/pkg/config"
)

type signer struct {
	fn bind.SignerFn
	// send serializes nonce assignment for one account.
	send sync.Mutex
}

// Keyring holds the accounts this backend can sign transactions for.
type Keyring struct {
	chainID *big.Int
	mu      sync.RWMutex
	signers map[common.Address]*signer
}

func NewKeyring(chainID *big.Int) *Keyring {
	return &Keyring{chainID: chainID, signers: map[common.Address]*signer{}}
}

// LoadKeyring builds the keyring from the operator key and keystore directory
// in cfg. The operator address must end up signable from one of them.
func LoadKeyring(cfg config.ChainConfig, chainID *big.Int) (*Keyring, error) {
	keys := NewKeyring(chainID)
	operator := cfg.Operator()
	if cfg.OperatorKey != "" {
		addr, err := keys.AddHexKey(cfg.OperatorKey)
		if err != nil {
			return nil, fmt.Errorf("operator key: %w", err)
		}
		if addr != operator {
			return nil, fmt.Errorf("operator key belongs to %s, expected %s", addr.Hex(), operator.Hex())
		}
	}
	if cfg.KeystoreDir != "" {
		if _, err := keys.AddKeystore(cfg.KeystoreDir, cfg.KeystorePassword); err != nil {
			return nil, fmt.Errorf("keystore: %w", err)
		}
	}
	if !keys.CanSign(operator) {
		return nil, fmt.Errorf("%w: operator %s needs %s or a keystore entry", ErrUnknownAccount, operator.Hex(), config.EnvOperatorKey)
	}
	return keys, nil
}

// AddHexKey registers a raw secp256k1 private key and returns its address.
func (k *Keyring) AddHexKey(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, k.chainID)
	if err != nil {
		return common.Address{}, fmt.Errorf("keyed transactor: %w", err)
	}
	k.add(opts.From, opts.Signer)
	return opts.From, nil
}

// AddKeystore unlocks every account in a go-ethereum keystore directory with
// the shared password and returns the addresses added.
func (k *Keyring) AddKeystore(dir, password string) ([]common.Address, error) {
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	var added []common.Address
	for _, account := range ks.Accounts() {
		if err := ks.Unlock(account, password); err != nil {
			return added, fmt.Errorf("unlock %s: %w", account.Address.Hex(), err)
		}
		opts, err := bind.NewKeyStoreTransactorWithChainID(ks, account, k.chainID)
		if err != nil {
			return added, fmt.Errorf("keystore transactor %s: %w", account.Address.Hex(), err)
		}
		k.add(account.Address, opts.Signer)
		added = append(added, account.Address)
	}
	return added, nil
}

func (k *Keyring) add(addr common.Address, fn bind.SignerFn) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.signers[addr] = &signer{fn: fn}
}

func (k *Keyring) lookup(addr common.Address) (*signer, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.signers[addr]
	return s, ok
}

// CanSign reports whether addr is managed.
func (k *Keyring) CanSign(addr common.Address) bool {
	_, ok := k.lookup(addr)
	return ok
}

// Accounts lists managed addresses in a stable order.
func (k *Keyring) Accounts() []common.Address {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]common.Address, 0, len(k.signers))
	for addr := range k.signers {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}
