package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
)

// ErrUnknownAccount is returned for writes from an address the keyring
// cannot sign for.
var ErrUnknownAccount = errors.New("account is not managed by this backend")

// Geth and Ganache phrase reverts differently.
var revertMarkers = []string{
	"execution reverted",
	"VM Exception while processing transaction: revert",
}

// RevertError is a contract-level rejection. Reason carries the revert string
// when the node returned one.
type RevertError struct {
	Method string
	Reason string
	TxHash common.Hash
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s reverted", e.Method)
	}
	return fmt.Sprintf("%s reverted: %s", e.Method, e.Reason)
}

// IsRevert reports whether err is a contract revert.
func IsRevert(err error) bool {
	var rev *RevertError
	return errors.As(err, &rev)
}

// dataError matches rpc.DataError without importing the rpc package.
type dataError interface {
	Error() string
	ErrorData() interface{}
}

// asRevert converts a node error into a RevertError when it describes a
// revert. Other errors (network, RPC) are returned unchanged.
func asRevert(method string, err error) error {
	if err == nil {
		return nil
	}
	var de dataError
	if errors.As(err, &de) {
		if raw, ok := de.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(raw); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return &RevertError{Method: method, Reason: reason}
				}
			}
		}
	}
	msg := err.Error()
	for _, marker := range revertMarkers {
		idx := strings.Index(msg, marker)
		if idx < 0 {
			continue
		}
		reason := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(marker):], ":"))
		return &RevertError{Method: method, Reason: reason}
	}
	return err
}

// ToAPIError maps a gateway failure onto the API error taxonomy. Writes from
// unmanaged accounts are forbidden; reverts and node failures are upstream
// errors whose cause is forwarded to the client.
func ToAPIError(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, ErrUnknownAccount) {
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "caller account cannot sign transactions on this backend")
	}
	return pkgerrors.Upstream(err, message)
}
