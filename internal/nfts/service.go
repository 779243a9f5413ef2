package nfts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nftennis/nftennis-backend/internal/activity"
	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

const (
	msgFieldsRequired = "All fields are required"
	msgOwnerOnly      = "Only the contract owner can mint"
)

type gateway interface {
	Operator() common.Address
	Mint(ctx context.Context, recipient common.Address, uri string, rarity enums.Rarity, media enums.MediaType) (chain.Receipt, error)
	RarityName(ctx context.Context, rarity enums.Rarity) (string, error)
}

// Service exposes the token write surface.
type Service interface {
	Mint(ctx context.Context, input MintInput) (*MintResult, error)
	RarityName(ctx context.Context, raw string) (*RarityResult, error)
}

// MintInput carries the raw request fields; enum values may be ordinals or names.
type MintInput struct {
	Caller    common.Address
	Recipient string
	TokenURI  string
	Rarity    string
	MediaType string
}

type MintResult struct {
	TokenID     *big.Int
	Recipient   common.Address
	TokenURI    string
	Rarity      enums.Rarity
	MediaType   enums.MediaType
	TxHash      common.Hash
	BlockNumber uint64
}

type RarityResult struct {
	Rarity enums.Rarity
	Name   string
}

type service struct {
	chain    gateway
	recorder *activity.Recorder
	logg     *logger.Logger
}

// NewService builds the token service. recorder may be nil.
func NewService(chain gateway, recorder *activity.Recorder, logg *logger.Logger) (Service, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{chain: chain, recorder: recorder, logg: logg}, nil
}

// Mint validates the request against the rarity/media invariant and the
// owner-only rule before issuing mintNFT from the operator account.
func (s *service) Mint(ctx context.Context, input MintInput) (*MintResult, error) {
	recipient := strings.TrimSpace(input.Recipient)
	uri := strings.TrimSpace(input.TokenURI)
	if recipient == "" || uri == "" || strings.TrimSpace(input.Rarity) == "" || strings.TrimSpace(input.MediaType) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgFieldsRequired)
	}
	if !common.IsHexAddress(recipient) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient must be a hex address")
	}
	rarity, err := enums.ParseRarity(input.Rarity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "rarity must be 0-3 or a rarity name")
	}
	media, err := enums.ParseMediaType(input.MediaType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mediaType must be 0-1 or a media type name")
	}
	if msg := enums.CompatibilityError(rarity, media); msg != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msg)
	}
	if input.Caller != s.chain.Operator() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgOwnerOnly)
	}

	to := common.HexToAddress(recipient)
	receipt, err := s.chain.Mint(ctx, to, uri, rarity, media)
	if err != nil {
		return nil, chain.ToAPIError(err, "mint failed")
	}
	if receipt.TokenID != nil {
		s.recorder.AuctionEvent(ctx, enums.AuctionEventMinted, receipt.TokenID, to.Hex(), nil, receipt)
		s.logg.Info(s.logg.WithTokenID(ctx, receipt.TokenID.String()), "nft.minted")
	}

	return &MintResult{
		TokenID:     receipt.TokenID,
		Recipient:   to,
		TokenURI:    uri,
		Rarity:      rarity,
		MediaType:   media,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
	}, nil
}

// RarityName reads the contract's display name for a rarity.
func (s *service) RarityName(ctx context.Context, raw string) (*RarityResult, error) {
	rarity, err := enums.ParseRarity(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "rarity must be 0-3 or a rarity name")
	}
	name, err := s.chain.RarityName(ctx, rarity)
	if err != nil {
		return nil, chain.ToAPIError(err, "rarity lookup failed")
	}
	return &RarityResult{Rarity: rarity, Name: name}, nil
}
