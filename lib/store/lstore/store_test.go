package lstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/sKV/lib/digest"
)

func TestLocalStore(t *testing.T) {
	t.Run("new store is empty", func(t *testing.T) {
		s := NewLocalStore()

		if s.Len() != 0 {
			t.Errorf("Expected empty store, got %d keys", s.Len())
		}
		if _, ok := s.Get("nonexistent"); ok {
			t.Error("Get on an empty store should report not found")
		}
	})

	t.Run("put and get", func(t *testing.T) {
		s := NewLocalStore()
		s.Put("a", "v1", digest.Compute("v1"))

		entry, ok := s.Get("a")
		if !ok {
			t.Fatal("Expected key a to exist")
		}
		if entry.Value != "v1" {
			t.Errorf("Expected value v1, got %s", entry.Value)
		}
		if entry.Digest != digest.Compute("v1") {
			t.Errorf("Expected digest of v1, got %s", entry.Digest)
		}
	})

	t.Run("overwrite replaces value and digest together", func(t *testing.T) {
		s := NewLocalStore()
		s.Put("k", "v1", "d1")
		s.Put("k", "v2", "d2")

		entry, ok := s.Get("k")
		if !ok {
			t.Fatal("Expected key k to exist")
		}
		if entry.Value != "v2" || entry.Digest != "d2" {
			t.Errorf("Expected (v2, d2), got (%s, %s)", entry.Value, entry.Digest)
		}
		if s.Len() != 1 {
			t.Errorf("Overwrite should not add a key, got %d keys", s.Len())
		}
	})

	t.Run("digest is stored as given", func(t *testing.T) {
		s := NewLocalStore()
		s.Put("k", "value", "not-a-real-digest")

		entry, _ := s.Get("k")
		if entry.Digest != "not-a-real-digest" {
			t.Errorf("Store must not recompute the digest, got %s", entry.Digest)
		}
	})

	t.Run("delete then get", func(t *testing.T) {
		s := NewLocalStore()
		s.Put("k", "v", "d")

		if !s.Delete("k") {
			t.Fatal("Delete of an existing key should return true")
		}
		if _, ok := s.Get("k"); ok {
			t.Error("Get after Delete should report not found")
		}
		if s.Delete("k") {
			t.Error("Second Delete should return false")
		}
	})

	t.Run("delete missing key", func(t *testing.T) {
		s := NewLocalStore()
		if s.Delete("missing") {
			t.Error("Delete of a missing key should return false")
		}
	})

	t.Run("info", func(t *testing.T) {
		s := NewLocalStore()
		s.Put("a", "12345", "d")
		s.Put("b", "123", "d")

		info := s.Info()
		if info.Keys != 2 {
			t.Errorf("Expected 2 keys, got %d", info.Keys)
		}
		if info.ValueBytes != 8 {
			t.Errorf("Expected 8 value bytes, got %d", info.ValueBytes)
		}
	})
}

func TestLocalStoreConcurrentAccess(t *testing.T) {
	s := NewLocalStore()

	const workers = 10
	const opsPerWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := fmt.Sprintf("key%d", i%10)
				value := fmt.Sprintf("worker%dop%d", w, i)
				s.Put(key, value, digest.Compute(value))
				if entry, ok := s.Get(key); ok && !digest.Verify(entry.Value, entry.Digest) {
					t.Errorf("entry for %s mixes value and digest of different writes", key)
				}
				if i%7 == 0 {
					s.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()

	if s.Len() > 10 {
		t.Errorf("Expected at most 10 keys, got %d", s.Len())
	}
}
