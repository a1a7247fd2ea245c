package utils

import "testing"

func TestSeenCacheEvictsOldest(t *testing.T) {
	cache := NewSeenCache(2)
	cache.Add("a")
	cache.Add("b")
	cache.Add("c")

	if cache.Has("a") {
		t.Error("oldest entry should have been evicted")
	}
	if !cache.Has("b") || !cache.Has("c") {
		t.Error("recent entries should be retained")
	}
	if cache.Len() != 2 {
		t.Errorf("unexpected length: %d", cache.Len())
	}
}

func TestSeenCacheIdempotentAdd(t *testing.T) {
	cache := NewSeenCache(2)
	cache.Add("a")
	cache.Add("a")
	if cache.Len() != 1 {
		t.Errorf("duplicate add must not grow the cache: %d", cache.Len())
	}
}
