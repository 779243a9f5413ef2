package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
)

type bidBody struct {
	Recipient string `json:"recipient" validate:"required,eth_addr"`
	Duration  int64  `json:"duration" validate:"gt=0"`
}

func jsonRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyValid(t *testing.T) {
	var body bidBody
	err := DecodeJSONBody(jsonRequest(`{"recipient":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8","duration":60}`), &body)
	require.NoError(t, err)
	assert.Equal(t, int64(60), body.Duration)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var body bidBody
	err := DecodeJSONBody(jsonRequest(`{"recipient":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8","duration":60,"extra":1}`), &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyReportsFieldMessages(t *testing.T) {
	var body bidBody
	err := DecodeJSONBody(jsonRequest(`{"recipient":"0x123","duration":0}`), &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a hex address", details["recipient"])
	assert.Equal(t, "must be greater than 0", details["duration"])
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=20&bad=x&big=500", nil)

	v, err := ParseQueryInt(r, "limit", 50, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	v, err = ParseQueryInt(r, "missing", 50, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, 50, v)

	_, err = ParseQueryInt(r, "bad", 50, 1, 200)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(r, "big", 50, 1, 200)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func withParam(key, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseTokenIDParam(t *testing.T) {
	id, err := ParseTokenIDParam(withParam("tokenId", "12"), "tokenId")
	require.NoError(t, err)
	assert.Equal(t, "12", id.String())

	for _, raw := range []string{"", "-1", "0x10", "abc"} {
		_, err := ParseTokenIDParam(withParam("tokenId", raw), "tokenId")
		assert.Error(t, err, raw)
	}
}

func TestParseAddressParam(t *testing.T) {
	addr, err := ParseAddressParam(withParam("address", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"), "address")
	require.NoError(t, err)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", addr.Hex())

	_, err = ParseAddressParam(withParam("address", "nope"), "address")
	assert.Error(t, err)
}
