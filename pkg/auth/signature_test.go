package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func personalSign(t *testing.T, message string) (string, []byte) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), sig
}

func TestRecoverSignerMatchesWallet(t *testing.T) {
	msg := SignInMessage("nftennis", testWallet, "n-1", time.Unix(1_700_000_000, 0))
	if !strings.Contains(msg, testWallet.Hex()) || !strings.Contains(msg, "Nonce: n-1") {
		t.Fatalf("unexpected message %q", msg)
	}

	want, sig := personalSign(t, msg)
	got, err := RecoverSigner(msg, hexutil.Encode(sig))
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got.Hex() != want {
		t.Fatalf("expected signer %s, got %s", want, got.Hex())
	}

	sig[crypto.RecoveryIDOffset] -= 27
	got, err = RecoverSigner(msg, hexutil.Encode(sig))
	if err != nil || got.Hex() != want {
		t.Fatalf("expected raw recovery id to be accepted, got %s %v", got.Hex(), err)
	}
}

func TestRecoverSignerOverOtherMessageDiffers(t *testing.T) {
	want, sig := personalSign(t, "original")
	got, err := RecoverSigner("tampered", hexutil.Encode(sig))
	if err == nil && got.Hex() == want {
		t.Fatal("signature over another message must not recover the same signer")
	}
}

func TestRecoverSignerRejectsMalformed(t *testing.T) {
	for _, sig := range []string{"", "zz", "0x1234"} {
		if _, err := RecoverSigner("msg", sig); err == nil {
			t.Fatalf("expected %q to be rejected", sig)
		}
	}
}
