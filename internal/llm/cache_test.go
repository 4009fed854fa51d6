package llm

import (
	"path/filepath"
	"testing"
)

func TestCacheSetAndGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "llmcache")
	cache, err := OpenCache(dir)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer cache.Close()

	key := Key("openai", "gpt-5-mini", "invoice content")
	if _, ok := cache.Get(key); ok {
		t.Fatal("expected cache miss before Set")
	}

	if err := cache.Set(key, "quarterly_invoice_march"); err != nil {
		t.Fatalf("failed to set cache entry: %v", err)
	}

	value, ok := cache.Get(key)
	if !ok {
		t.Fatal("expected cache hit after Set")
	}
	if value != "quarterly_invoice_march" {
		t.Errorf("expected cached value, got %q", value)
	}
}

func TestKeyIsStableAndContentSensitive(t *testing.T) {
	a := Key("openai", "gpt-5-mini", "content A")
	b := Key("openai", "gpt-5-mini", "content A")
	c := Key("openai", "gpt-5-mini", "content B")

	if a != b {
		t.Error("expected identical inputs to produce identical keys")
	}
	if a == c {
		t.Error("expected different content to produce different keys")
	}
}

func TestNilCacheIsSafeNoOp(t *testing.T) {
	var cache *Cache
	if _, ok := cache.Get("anything"); ok {
		t.Error("expected nil cache Get to miss")
	}
	if err := cache.Set("anything", "value"); err != nil {
		t.Error("expected nil cache Set to be a no-op")
	}
	if err := cache.Close(); err != nil {
		t.Error("expected nil cache Close to be a no-op")
	}
}
