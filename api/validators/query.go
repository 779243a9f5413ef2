package validators

import (
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseTokenIDParam reads a non-negative decimal token id from a route param.
func ParseTokenIDParam(r *http.Request, key string) (*big.Int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, ok := new(big.Int).SetString(raw, 10)
	if raw == "" || !ok || id.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid token id").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ParseAddressParam reads a hex account address from a route param.
func ParseAddressParam(r *http.Request, key string) (common.Address, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if !common.IsHexAddress(raw) {
		return common.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid address").WithDetails(map[string]any{"field": key})
	}
	return common.HexToAddress(raw), nil
}
