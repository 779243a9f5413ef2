package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nftennis/nftennis-backend/pkg/db/models"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/pagination"
)

type stubActivity struct {
	events  []models.AuctionEvent
	pins    []models.Pin
	next    *pagination.Cursor
	err     error
	tokenID string
	status  *enums.PinStatus
	page    pagination.Params
}

func (s *stubActivity) ListEvents(_ context.Context, tokenID string, _ int) ([]models.AuctionEvent, error) {
	s.tokenID = tokenID
	return s.events, s.err
}

func (s *stubActivity) ListPins(_ context.Context, status *enums.PinStatus, page pagination.Params) ([]models.Pin, *pagination.Cursor, error) {
	s.status, s.page = status, page
	return s.pins, s.next, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

func serve(t *testing.T, pattern, target string, h http.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	r.Get(pattern, h)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return resp, payload
}

func TestTokenHistoryFormatsAmounts(t *testing.T) {
	repo := &stubActivity{events: []models.AuctionEvent{
		{TokenID: "4", Type: enums.AuctionEventBid, Actor: "0xabc", AmountWei: "1500000000000000000", TxHash: "0x1", Block: 9},
	}}
	resp, payload := serve(t, "/nfts/{tokenId}/history", "/nfts/4/history", TokenHistory(repo, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "4", repo.tokenID)

	events := payload["data"].([]any)
	require.Len(t, events, 1)
	event := events[0].(map[string]any)
	assert.Equal(t, "bid", event["type"])
	assert.Equal(t, "1.5", event["amountEth"])
}

func TestTokenHistoryRejectsBadTokenID(t *testing.T) {
	resp, _ := serve(t, "/nfts/{tokenId}/history", "/nfts/abc/history", TokenHistory(&stubActivity{}, testLogger()))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListPinsFiltersAndReturnsCursor(t *testing.T) {
	next := &pagination.Cursor{CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ID: uuid.New()}
	repo := &stubActivity{
		pins: []models.Pin{{CID: "bafy", Kind: enums.PinKindFile, Status: enums.PinStatusOrphaned}},
		next: next,
	}
	resp, payload := serve(t, "/pins", "/pins?status=orphaned&limit=1", ListPins(repo, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, repo.status)
	assert.Equal(t, enums.PinStatusOrphaned, *repo.status)
	assert.Equal(t, 1, repo.page.Limit)

	data := payload["data"].(map[string]any)
	assert.Len(t, data["pins"], 1)
	assert.Equal(t, pagination.EncodeCursor(*next), data["nextCursor"])
}

func TestListPinsValidation(t *testing.T) {
	cases := []string{"/pins?status=lost", "/pins?limit=0", "/pins?cursor=!!!"}
	for _, target := range cases {
		resp, _ := serve(t, "/pins", target, ListPins(&stubActivity{}, testLogger()))
		assert.Equal(t, http.StatusBadRequest, resp.Code, target)
	}
}

func TestListPinsRepositoryFailure(t *testing.T) {
	resp, _ := serve(t, "/pins", "/pins", ListPins(&stubActivity{err: errors.New("db down")}, testLogger()))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
