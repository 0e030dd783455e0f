package cache_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/serverops/cache"
)

func ExampleNewMemoryCache() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "doc:main.go", []byte("symbols"), 5*time.Minute)

	value, ok := c.Get(ctx, "doc:main.go")
	if ok {
		fmt.Println("Value:", string(value))
	}
	// Output:
	// Value: symbols
}

func ExampleMemoryCache_Set() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	// Normal set with TTL
	err := c.Set(ctx, "key1", []byte("value1"), 5*time.Minute)
	fmt.Println("Set error:", err)

	// Set with zero TTL is a no-op (no caching)
	err = c.Set(ctx, "key2", []byte("value2"), 0)
	fmt.Println("Zero TTL error:", err)

	_, ok := c.Get(ctx, "key2")
	fmt.Println("Zero TTL key cached:", ok)
	// Output:
	// Set error: <nil>
	// Zero TTL error: <nil>
	// Zero TTL key cached: false
}

func ExampleMemoryCache_Delete() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "to-delete", []byte("temporary"), time.Hour)

	err := c.Delete(ctx, "to-delete")
	fmt.Println("Delete error:", err)

	_, ok := c.Get(ctx, "to-delete")
	fmt.Println("After delete:", ok)

	// Delete is idempotent - no error on missing key
	err = c.Delete(ctx, "never-existed")
	fmt.Println("Delete missing:", err)
	// Output:
	// Delete error: <nil>
	// After delete: false
	// Delete missing: <nil>
}

func ExampleValidateKey() {
	// Valid keys
	fmt.Println("normal key:", cache.ValidateKey("doc:main.go") == nil)

	// Invalid keys
	fmt.Println("empty:", errors.Is(cache.ValidateKey(""), cache.ErrInvalidKey))
	fmt.Println("whitespace:", errors.Is(cache.ValidateKey("   "), cache.ErrInvalidKey))

	longKey := make([]byte, cache.MaxKeyLength+1)
	for i := range longKey {
		longKey[i] = 'x'
	}
	fmt.Println("too long:", errors.Is(cache.ValidateKey(string(longKey)), cache.ErrKeyTooLong))
	// Output:
	// normal key: true
	// empty: true
	// whitespace: true
	// too long: true
}
