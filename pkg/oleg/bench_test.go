package oleg

import (
	"fmt"
	"testing"
)

func benchStore(b *testing.B) *Store {
	b.Helper()

	store, err := Open(Options{Path: b.TempDir(), Name: "bench"})
	if err != nil {
		b.Fatal(err)
	}

	b.Cleanup(func() { _ = store.Close() })

	return store
}

func BenchmarkPut(b *testing.B) {
	store := benchStore(b)
	value := []byte("some-benchmark-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		_ = store.Put(key, value)
	}
}

func BenchmarkGet_Hit(b *testing.B) {
	store := benchStore(b)
	value := []byte("some-benchmark-value")

	for i := 0; i < 10000; i++ {
		_ = store.Put([]byte(fmt.Sprintf("key-%d", i)), value)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("key-%d", i%10000))
		store.Get(key)
	}
}

func BenchmarkDelete(b *testing.B) {
	store := benchStore(b)
	value := []byte("some-benchmark-value")

	keys := make([][]byte, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
		_ = store.Put(keys[i], value)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Delete(keys[i])
	}
}

func BenchmarkSave(b *testing.B) {
	store := benchStore(b)
	value := []byte("some-benchmark-value")

	for i := 0; i < 10000; i++ {
		_ = store.Put([]byte(fmt.Sprintf("key-%d", i)), value)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.Save(); err != nil {
			b.Fatal(err)
		}
	}
}
