package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memStore struct {
	values map[string]string
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockExcludesSecondHolder(t *testing.T) {
	store := &memStore{values: map[string]string{}}
	ctx := context.Background()
	first, err := NewRedisLock(store, "nft:lock:sweeper", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "nft:lock:sweeper", time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("second acquire should fail while held")
	}
	// a holder that never acquired must not delete someone else's lock
	if err := second.Release(ctx); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if _, ok := store.values["nft:lock:sweeper"]; !ok {
		t.Fatalf("lock deleted by non-owner")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected lock to be free after release")
	}
}

func TestRedisLockReleaseToleratesExpiry(t *testing.T) {
	store := &memStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "k", 0)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatalf("acquire failed")
	}
	delete(store.values, "k")
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
}
