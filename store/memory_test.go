package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cinerank/cinerank/core"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	if _, err := s.Get(ctx, "missing"); !core.IsNotFound(err) {
		t.Errorf("Get missing key: err = %v, want not-found", err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "ephemeral", []byte("v"), 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get(ctx, "ephemeral"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	// 过期判断走惰性检查，不依赖清理协程的节拍
	past := time.Now().Add(-time.Second)
	s.mu.Lock()
	s.data["ephemeral"].ttl = &past
	s.mu.Unlock()

	if _, err := s.Get(ctx, "ephemeral"); !core.IsNotFound(err) {
		t.Errorf("Get after expiry: err = %v, want not-found", err)
	}
}

func TestMemoryStoreSetNX(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "k", []byte("first"))
	if err != nil || !ok {
		t.Fatalf("SetNX empty key = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.SetNX(ctx, "k", []byte("second"))
	if err != nil {
		t.Fatalf("SetNX: %v", err)
	}
	if ok {
		t.Error("SetNX on existing key = true, want false")
	}
	got, _ := s.Get(ctx, "k")
	if string(got) != "first" {
		t.Errorf("value after losing SetNX = %q, want %q", got, "first")
	}

	// 过期条目视同不存在，SetNX 可以重新占位
	past := time.Now().Add(-time.Second)
	s.mu.Lock()
	s.data["k"].ttl = &past
	s.mu.Unlock()
	ok, err = s.SetNX(ctx, "k", []byte("third"))
	if err != nil || !ok {
		t.Fatalf("SetNX on expired key = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestMemoryStoreHIncrByConcurrent(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	const workers = 10
	const perWorker = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := s.HIncrBy(ctx, "h", "count", 1); err != nil {
					t.Errorf("HIncrBy: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := s.HGet(ctx, "h", "count")
	if err != nil {
		t.Fatalf("HGet: %v", err)
	}
	if string(got) != fmt.Sprintf("%d", workers*perWorker) {
		t.Errorf("count = %s, want %d", got, workers*perWorker)
	}
}

func TestMemoryStoreHIncrByInvalidField(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.HSet(ctx, "h", "f", []byte("not-a-number")); err != nil {
		t.Fatalf("HSet: %v", err)
	}
	if _, err := s.HIncrBy(ctx, "h", "f", 1); err == nil {
		t.Error("HIncrBy on non-integer field: err = nil, want error")
	}
}

func TestMemoryStoreHGetAll(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_ = s.HSet(ctx, "h", "a", []byte("1"))
	_ = s.HSet(ctx, "h", "b", []byte("2"))

	all, err := s.HGetAll(ctx, "h")
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if len(all) != 2 || string(all["a"]) != "1" || string(all["b"]) != "2" {
		t.Errorf("HGetAll = %v", all)
	}

	// 返回的 map 是副本，增删字段不影响内部状态
	delete(all, "a")
	if _, err := s.HGet(ctx, "h", "a"); err != nil {
		t.Errorf("internal hash mutated via HGetAll map: %v", err)
	}

	empty, err := s.HGetAll(ctx, "nope")
	if err != nil || len(empty) != 0 {
		t.Errorf("HGetAll on missing key = (%v, %v), want empty map", empty, err)
	}
}

func TestMemoryStoreListOps(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.RPush(ctx, "l", []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("RPush: %v", err)
		}
	}

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{"full range via -1", 0, -1, []string{"v0", "v1", "v2", "v3", "v4"}},
		{"middle slice", 1, 3, []string{"v1", "v2", "v3"}},
		{"stop beyond length clamps", 3, 100, []string{"v3", "v4"}},
		{"negative start clamps to zero", -5, 1, []string{"v0", "v1"}},
		{"start after stop is empty", 4, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.LRange(ctx, "l", tt.start, tt.stop)
			if err != nil {
				t.Fatalf("LRange: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("LRange returned %d rows, want %d", len(rows), len(tt.want))
			}
			for i, raw := range rows {
				if string(raw) != tt.want[i] {
					t.Errorf("row %d = %q, want %q", i, raw, tt.want[i])
				}
			}
		})
	}
}

func TestMemoryStoreDeleteClearsEverything(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"))
	_ = s.HSet(ctx, "k", "f", []byte("1"))
	_ = s.RPush(ctx, "k", []byte("row"))

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !core.IsNotFound(err) {
		t.Errorf("Get after delete: err = %v, want not-found", err)
	}
	all, _ := s.HGetAll(ctx, "k")
	if len(all) != 0 {
		t.Errorf("hash survives delete: %v", all)
	}
	rows, _ := s.LRange(ctx, "k", 0, -1)
	if len(rows) != 0 {
		t.Errorf("list survives delete: %v", rows)
	}
}

func TestMemoryStoreBatchGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"))
	_ = s.Set(ctx, "b", []byte("2"))

	got, err := s.BatchGet(ctx, []string{"a", "missing", "b"})
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet = %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Error("BatchGet returned entry for missing key")
	}
}
