package activity

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nftennis/nftennis-backend/pkg/chain"
	"github.com/nftennis/nftennis-backend/pkg/db/models"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	"github.com/nftennis/nftennis-backend/pkg/pagination"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.Pin{}, &models.AuctionEvent{}))
	return NewRepository(conn)
}

func TestPinLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	file := &models.Pin{CID: "bafyfile", Kind: enums.PinKindFile, FileName: "ace.png", MimeType: "image/png", SizeBytes: 10, Status: enums.PinStatusPinned}
	meta := &models.Pin{CID: "bafymeta", Kind: enums.PinKindMetadata, FileName: "ace.json", MimeType: "application/json", SizeBytes: 5, Status: enums.PinStatusPinned}
	require.NoError(t, repo.CreatePin(ctx, file))
	require.NoError(t, repo.CreatePin(ctx, meta))
	require.NotEqual(t, uuid.Nil, file.ID)

	token := "7"
	require.NoError(t, repo.MarkPins(ctx, []uuid.UUID{file.ID, meta.ID}, enums.PinStatusMinted, &token))

	minted := enums.PinStatusMinted
	pins, _, err := repo.ListPins(ctx, &minted, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, pins, 2)
	for _, p := range pins {
		require.NotNil(t, p.TokenID)
		assert.Equal(t, "7", *p.TokenID)
	}

	pinned := enums.PinStatusPinned
	pins, _, err = repo.ListPins(ctx, &pinned, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, pins)
}

func TestOrphanStaleOnlyTouchesOldPinnedRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := &models.Pin{CID: "old", Kind: enums.PinKindFile, Status: enums.PinStatusPinned, CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &models.Pin{CID: "fresh", Kind: enums.PinKindFile, Status: enums.PinStatusPinned}
	done := &models.Pin{CID: "done", Kind: enums.PinKindFile, Status: enums.PinStatusMinted, CreatedAt: time.Now().Add(-48 * time.Hour)}
	for _, p := range []*models.Pin{old, fresh, done} {
		require.NoError(t, repo.CreatePin(ctx, p))
	}

	n, err := repo.OrphanStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	orphaned := enums.PinStatusOrphaned
	pins, _, err := repo.ListPins(ctx, &orphaned, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, "old", pins[0].CID)
}

func TestRecorderWritesEventsAndSettlesPins(t *testing.T) {
	repo := newTestRepo(t)
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	receipt := chain.Receipt{TxHash: common.HexToHash("0xabc"), BlockNumber: 12}
	rec.AuctionEvent(ctx, enums.AuctionEventStarted, big.NewInt(3), "0xseller", nil, receipt)
	rec.AuctionEvent(ctx, enums.AuctionEventBid, big.NewInt(3), "0xbidder", big.NewInt(500), receipt)

	events, err := repo.ListEvents(ctx, "3", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "0", events[0].AmountWei)
	assert.Equal(t, "500", events[1].AmountWei)
	assert.Equal(t, uint64(12), events[1].Block)

	id := rec.Pin(ctx, &models.Pin{CID: "bafy", Kind: enums.PinKindFile, Status: enums.PinStatusPinned})
	require.NotEqual(t, uuid.Nil, id)
	rec.SettlePins(ctx, []uuid.UUID{id, uuid.Nil}, nil)

	orphaned := enums.PinStatusOrphaned
	pins, _, err := repo.ListPins(ctx, &orphaned, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Nil(t, pins[0].TokenID)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	ctx := context.Background()
	rec.AuctionEvent(ctx, enums.AuctionEventBid, big.NewInt(1), "0x", big.NewInt(1), chain.Receipt{})
	assert.Equal(t, uuid.Nil, rec.Pin(ctx, &models.Pin{}))
	rec.SettlePins(ctx, nil, big.NewInt(1))
	assert.Nil(t, NewRecorder(nil, nil))
}

func TestListPinsPagesNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, cid := range []string{"a", "b", "c"} {
		p := &models.Pin{CID: cid, Kind: enums.PinKindFile, Status: enums.PinStatusPinned, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.CreatePin(ctx, p))
	}

	first, cursor, err := repo.ListPins(ctx, nil, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "c", first[0].CID)
	assert.Equal(t, "b", first[1].CID)
	require.NotNil(t, cursor)

	second, next, err := repo.ListPins(ctx, nil, pagination.Params{Limit: 2, Cursor: pagination.EncodeCursor(*cursor)})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "a", second[0].CID)
	assert.Nil(t, next)

	_, _, err = repo.ListPins(ctx, nil, pagination.Params{Cursor: "!!!"})
	assert.Error(t, err)
}
