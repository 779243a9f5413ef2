package auth

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/nftennis/nftennis-backend/pkg/auth"
	"github.com/nftennis/nftennis-backend/pkg/config"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) GetDel(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	delete(m.values, key)
	return v, nil
}

func (m *memoryStore) SignInKey(address string) string { return "signin:" + strings.ToLower(address) }

var jwtCfg = config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", Issuer: "nftennis", ExpirationMinutes: 60}

func newTestService(t *testing.T, store ChallengeStore) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:  store,
		JWT:    jwtCfg,
		SignIn: config.SignInConfig{NonceTTL: 5 * time.Minute, Domain: "nftennis.test"},
		Logger: logger.New(logger.Options{Output: io.Discard}),
		Clock:  func() time.Time { return time.Now() },
	})
	require.NoError(t, err)
	return svc
}

func sign(t *testing.T, message string) (string, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "untyped error %v", err)
	require.Equal(t, code, typed.Code())
}

func TestSignInWithSignedChallenge(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	store := newMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	challenge, err := svc.Challenge(ctx, ChallengeRequest{Address: strings.ToLower(addr.Hex())})
	require.NoError(t, err)
	assert.Equal(t, addr.Hex(), challenge.Address)
	assert.Contains(t, challenge.Message, challenge.Nonce)
	assert.Contains(t, challenge.Message, "nftennis.test")
	assert.Equal(t, 5*time.Minute, store.ttls[store.SignInKey(addr.Hex())])

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	res, err := svc.SignIn(ctx, SignInRequest{Address: addr.Hex(), Signature: hexutil.Encode(sig)})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, addr.Hex(), res.Address)

	claims, err := pkgAuth.ParseAccessToken(jwtCfg, res.AccessToken)
	require.NoError(t, err)
	wallet, err := claims.Wallet()
	require.NoError(t, err)
	assert.Equal(t, addr, wallet)

	_, err = svc.SignIn(ctx, SignInRequest{Address: addr.Hex(), Signature: hexutil.Encode(sig)})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestSignInRejectsSignatureFromAnotherWallet(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()
	victim := "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

	challenge, err := svc.Challenge(ctx, ChallengeRequest{Address: victim})
	require.NoError(t, err)
	_, forged := sign(t, challenge.Message)

	_, err = svc.SignIn(ctx, SignInRequest{Address: victim, Signature: forged})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
	assert.Equal(t, msgSignatureMismatch, pkgerrors.As(err).Message())
	assert.Empty(t, store.values, "failed attempt must consume the challenge")
}

func TestSignInWithoutChallenge(t *testing.T) {
	svc := newTestService(t, newMemoryStore())
	addr, sig := sign(t, "anything")

	_, err := svc.SignIn(context.Background(), SignInRequest{Address: addr, Signature: sig})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
	assert.Equal(t, msgChallengeMissing, pkgerrors.As(err).Message())
}

func TestSignInMalformedSignature(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()
	addr := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

	_, err := svc.Challenge(ctx, ChallengeRequest{Address: addr})
	require.NoError(t, err)
	_, err = svc.SignIn(ctx, SignInRequest{Address: addr, Signature: "0xdeadbeef"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestChallengeValidationAndStoreFailure(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)

	_, err := svc.Challenge(context.Background(), ChallengeRequest{Address: "nope"})
	requireCode(t, err, pkgerrors.CodeValidation)

	store.err = errors.New("connection refused")
	_, err = svc.Challenge(context.Background(), ChallengeRequest{Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{JWT: jwtCfg, SignIn: config.SignInConfig{NonceTTL: time.Minute}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Store: newMemoryStore(), SignIn: config.SignInConfig{NonceTTL: time.Minute}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Store: newMemoryStore(), JWT: jwtCfg})
	require.Error(t, err)
}
