// Package auth implements wallet sign-in: the server hands out a one-time
// message, the wallet signs it with personal_sign, and a verified signature
// is exchanged for an access token.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	pkgAuth "github.com/nftennis/nftennis-backend/pkg/auth"
	"github.com/nftennis/nftennis-backend/pkg/config"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/redis"
)

const (
	msgChallengeMissing  = "sign-in challenge expired or unknown"
	msgSignatureMismatch = "signature does not match address"
)

type Service interface {
	Challenge(ctx context.Context, req ChallengeRequest) (*ChallengeResponse, error)
	SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error)
}

// ChallengeStore keeps one pending challenge per address. GetDel must remove
// the value it returns so a challenge is usable once.
type ChallengeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	SignInKey(address string) string
}

type ServiceParams struct {
	Store  ChallengeStore
	JWT    config.JWTConfig
	SignIn config.SignInConfig
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	store  ChallengeStore
	jwt    config.JWTConfig
	signIn config.SignInConfig
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("challenge store is required")
	}
	if p.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if p.SignIn.NonceTTL <= 0 {
		return nil, fmt.Errorf("sign-in nonce ttl must be positive")
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{store: p.Store, jwt: p.JWT, signIn: p.SignIn, logg: p.Logger, now: clock}, nil
}

// Challenge issues a fresh message for the address to sign, replacing any
// challenge still pending for it.
func (s *service) Challenge(ctx context.Context, req ChallengeRequest) (*ChallengeResponse, error) {
	addr, err := parseAddress(req.Address)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	nonce := uuid.NewString()
	message := pkgAuth.SignInMessage(s.signIn.Domain, addr, nonce, now)
	if err := s.store.Set(ctx, s.store.SignInKey(addr.Hex()), message, s.signIn.NonceTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store sign-in challenge")
	}

	return &ChallengeResponse{
		Address:   addr.Hex(),
		Nonce:     nonce,
		Message:   message,
		ExpiresAt: now.Add(s.signIn.NonceTTL),
	}, nil
}

// SignIn consumes the pending challenge and, when the signature recovers to
// the claimed address, issues an access token. A failed attempt still burns
// the challenge.
func (s *service) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	addr, err := parseAddress(req.Address)
	if err != nil {
		return nil, err
	}

	message, err := s.store.GetDel(ctx, s.store.SignInKey(addr.Hex()))
	if err != nil {
		if redis.IsMiss(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgChallengeMissing)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sign-in challenge")
	}

	signer, err := pkgAuth.RecoverSigner(message, req.Signature)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid signature")
	}
	if signer != addr {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSignatureMismatch)
	}

	token, expiresAt, err := pkgAuth.MintAccessToken(s.jwt, s.now(), addr)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue access token")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCaller(ctx, addr.Hex()), "auth.signed_in")
	}

	return &SignInResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC(),
		Address:     addr.Hex(),
	}, nil
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "address must be a hex address")
	}
	return common.HexToAddress(raw), nil
}
