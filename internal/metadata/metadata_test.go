package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nftennis/nftennis-backend/pkg/enums"
)

type memCache struct {
	data map[string]string
}

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func (m *memCache) MetadataKey(uri string) string { return "meta:" + uri }

func TestBuildUsesImageOrAnimationURL(t *testing.T) {
	img := Build("Ace", "first serve", "https://gw/ipfs/a", enums.RarityLegendary, enums.MediaTypeImage)
	assert.Equal(t, "https://gw/ipfs/a", img.Image)
	assert.Empty(t, img.AnimationURL)
	assert.Equal(t, "Legendary", img.Trait(TraitRarity))
	assert.Equal(t, "Image", img.Trait(TraitMediaType))

	vid := Build("Rally", "", "https://gw/ipfs/v", enums.RarityMasterpiece, enums.MediaTypeVideo)
	assert.Empty(t, vid.Image)
	assert.Equal(t, "https://gw/ipfs/v", vid.AnimationURL)
	assert.Equal(t, "https://gw/ipfs/v", vid.MediaURL())

	raw, err := json.Marshal(vid)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"image"`)
	assert.Contains(t, string(raw), `"trait_type":"Media Type"`)
}

func TestResolveRewritesIPFS(t *testing.T) {
	f := NewFetcher(FetcherParams{GatewayURL: "https://gw.example/ipfs/"})
	assert.Equal(t, "https://gw.example/ipfs/bafy", f.Resolve("ipfs://bafy"))
	assert.Equal(t, "https://gw.example/ipfs/bafy", f.Resolve("ipfs://ipfs/bafy"))
	assert.Equal(t, "https://other/x.json", f.Resolve("https://other/x.json"))
}

func TestFetchCachesDocuments(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"name":"Ace","description":"d","image":"https://gw/ipfs/a","attributes":[{"trait_type":"Rarity","value":"Rare"}]}`))
	}))
	defer srv.Close()

	cache := &memCache{data: map[string]string{}}
	f := NewFetcher(FetcherParams{HTTPClient: srv.Client(), Cache: cache, CacheTTL: time.Hour})

	for i := 0; i < 2; i++ {
		doc, err := f.Fetch(context.Background(), srv.URL+"/meta.json")
		require.NoError(t, err)
		assert.Equal(t, "Ace", doc.Name)
		assert.Equal(t, "Rare", doc.Trait(TraitRarity))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchRejectsOversizedAndBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"name":"` + strings.Repeat("x", 100) + `"}`))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherParams{HTTPClient: srv.Client(), MaxBytes: 32})
	_, err := f.Fetch(context.Background(), srv.URL+"/big")
	require.Error(t, err)
	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	_, err = f.Fetch(context.Background(), "")
	require.Error(t, err)
}
