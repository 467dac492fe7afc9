package metadata

import (
	"context"
	"testing"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/store"
)

// countingProvider 记录回源次数的 MetadataProvider。
type countingProvider struct {
	inner *StaticProvider
	calls int
}

func (p *countingProvider) GetItemDetails(ctx context.Context, itemID string) (*core.MovieDetails, error) {
	p.calls++
	return p.inner.GetItemDetails(ctx, itemID)
}

func TestStoreProviderReadThrough(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	origin := &countingProvider{inner: NewStaticProvider(
		&core.MovieDetails{ID: "m1", Title: "Alien"},
	)}
	p := NewStoreProvider(kv).WithFallback(origin)
	ctx := context.Background()

	d, err := p.GetItemDetails(ctx, "m1")
	if err != nil {
		t.Fatalf("GetItemDetails: %v", err)
	}
	if d.Title != "Alien" {
		t.Errorf("Title = %q, want %q", d.Title, "Alien")
	}
	if origin.calls != 1 {
		t.Fatalf("origin calls = %d, want 1", origin.calls)
	}

	// 第二次命中缓存，不再回源
	if _, err := p.GetItemDetails(ctx, "m1"); err != nil {
		t.Fatalf("GetItemDetails cached: %v", err)
	}
	if origin.calls != 1 {
		t.Errorf("origin calls after cache hit = %d, want 1", origin.calls)
	}
}

func TestStoreProviderMissWithoutFallback(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	p := NewStoreProvider(kv)

	if _, err := p.GetItemDetails(context.Background(), "nope"); !core.IsNotFound(err) {
		t.Errorf("err = %v, want metadata not-found", err)
	}
}

func TestStoreProviderCorruptCacheRefetches(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	origin := &countingProvider{inner: NewStaticProvider(
		&core.MovieDetails{ID: "m1", Title: "Alien"},
	)}
	p := NewStoreProvider(kv).WithFallback(origin)
	ctx := context.Background()

	if err := kv.Set(ctx, "movie:details:m1", []byte("{not json")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	d, err := p.GetItemDetails(ctx, "m1")
	if err != nil {
		t.Fatalf("GetItemDetails: %v", err)
	}
	if d.Title != "Alien" || origin.calls != 1 {
		t.Errorf("refetch = (%q, %d calls), want (Alien, 1)", d.Title, origin.calls)
	}

	// 坏数据已被回源结果覆盖
	if _, err := p.GetItemDetails(ctx, "m1"); err != nil {
		t.Fatalf("GetItemDetails after overwrite: %v", err)
	}
	if origin.calls != 1 {
		t.Errorf("origin calls = %d, want 1 after cache repair", origin.calls)
	}
}

func TestStoreProviderPutValidation(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	p := NewStoreProvider(kv)
	ctx := context.Background()

	if err := p.Put(ctx, nil); err == nil {
		t.Error("Put(nil): err = nil, want invalid input")
	}
	if err := p.Put(ctx, &core.MovieDetails{}); err == nil {
		t.Error("Put without id: err = nil, want invalid input")
	}
	if err := p.Put(ctx, &core.MovieDetails{ID: "m1", Title: "Alien"}); err != nil {
		t.Errorf("Put: %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(
		&core.MovieDetails{ID: "m1", Title: "Alien"},
		nil,
		&core.MovieDetails{Title: "no id, dropped"},
	)

	d, err := p.GetItemDetails(context.Background(), "m1")
	if err != nil || d.Title != "Alien" {
		t.Errorf("GetItemDetails = (%v, %v)", d, err)
	}
	if _, err := p.GetItemDetails(context.Background(), "m2"); !core.IsNotFound(err) {
		t.Errorf("miss err = %v, want not-found", err)
	}
}
