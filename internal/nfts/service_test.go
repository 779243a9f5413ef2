package nfts

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

var (
	operator  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	recipient = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type stubGateway struct {
	mints   int
	mintErr error
	names   map[enums.Rarity]string
}

func (s *stubGateway) Operator() common.Address { return operator }

func (s *stubGateway) Mint(_ context.Context, _ common.Address, _ string, _ enums.Rarity, _ enums.MediaType) (chain.Receipt, error) {
	s.mints++
	if s.mintErr != nil {
		return chain.Receipt{}, s.mintErr
	}
	return chain.Receipt{TokenID: big.NewInt(int64(s.mints - 1)), BlockNumber: 5, TxHash: common.HexToHash("0x01")}, nil
}

func (s *stubGateway) RarityName(_ context.Context, r enums.Rarity) (string, error) {
	return s.names[r], nil
}

func newTestService(t *testing.T, gw *stubGateway) Service {
	t.Helper()
	svc, err := NewService(gw, nil, logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestMintImageLegendary(t *testing.T) {
	gw := &stubGateway{names: map[enums.Rarity]string{enums.RarityLegendary: "Legendary"}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	res, err := svc.Mint(ctx, MintInput{Caller: operator, Recipient: recipient, TokenURI: "ipfs://meta", Rarity: "2", MediaType: "0"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.TokenID.Int64())
	assert.Equal(t, enums.RarityLegendary, res.Rarity)
	assert.Equal(t, enums.MediaTypeImage, res.MediaType)

	name, err := svc.RarityName(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Legendary", name.Name)
}

func TestMintValidation(t *testing.T) {
	cases := []struct {
		name  string
		input MintInput
		code  pkgerrors.Code
		msg   string
	}{
		{"missing uri", MintInput{Caller: operator, Recipient: recipient, Rarity: "1", MediaType: "0"}, pkgerrors.CodeValidation, msgFieldsRequired},
		{"missing media", MintInput{Caller: operator, Recipient: recipient, TokenURI: "u", Rarity: "1"}, pkgerrors.CodeValidation, msgFieldsRequired},
		{"bad recipient", MintInput{Caller: operator, Recipient: "bob", TokenURI: "u", Rarity: "1", MediaType: "0"}, pkgerrors.CodeValidation, "recipient must be a hex address"},
		{"rarity out of range", MintInput{Caller: operator, Recipient: recipient, TokenURI: "u", Rarity: "4", MediaType: "0"}, pkgerrors.CodeValidation, ""},
		{"video common", MintInput{Caller: operator, Recipient: recipient, TokenURI: "u", Rarity: "0", MediaType: "1"}, pkgerrors.CodeValidation, "Videos can only have MASTERPIECE rarity"},
		{"image masterpiece", MintInput{Caller: operator, Recipient: recipient, TokenURI: "u", Rarity: "Masterpiece", MediaType: "Image"}, pkgerrors.CodeValidation, "Images cannot have MASTERPIECE rarity"},
		{"not owner", MintInput{Caller: common.HexToAddress(recipient), Recipient: recipient, TokenURI: "u", Rarity: "3", MediaType: "1"}, pkgerrors.CodeForbidden, msgOwnerOnly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &stubGateway{}
			svc := newTestService(t, gw)
			_, err := svc.Mint(context.Background(), tc.input)
			require.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, pkgerrors.As(err).Message())
			}
			assert.Zero(t, gw.mints)
		})
	}
}

func TestMintSurfacesUpstreamFailure(t *testing.T) {
	gw := &stubGateway{mintErr: errors.New("connection refused")}
	svc := newTestService(t, gw)

	_, err := svc.Mint(context.Background(), MintInput{Caller: operator, Recipient: recipient, TokenURI: "u", Rarity: "3", MediaType: "1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
	assert.Equal(t, map[string]string{"cause": "connection refused"}, pkgerrors.As(err).Details())
}
