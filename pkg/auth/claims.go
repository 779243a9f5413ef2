package auth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims is the JWT issued once a wallet proves control of its
// address. Subject carries the same checksummed address.
type AccessTokenClaims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// Wallet returns the signed-in address.
func (c *AccessTokenClaims) Wallet() (common.Address, error) {
	if c == nil || !common.IsHexAddress(c.Address) {
		return common.Address{}, fmt.Errorf("token carries no wallet address")
	}
	addr := common.HexToAddress(c.Address)
	if c.Subject != "" && !common.IsHexAddress(c.Subject) {
		return common.Address{}, fmt.Errorf("token subject is not an address")
	}
	if c.Subject != "" && common.HexToAddress(c.Subject) != addr {
		return common.Address{}, fmt.Errorf("token subject does not match address")
	}
	return addr, nil
}
