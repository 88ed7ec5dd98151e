package engine_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jonwraymond/packcache/config"
	"github.com/jonwraymond/packcache/engine"
)

func Example() {
	dir, err := os.MkdirTemp("", "packcache-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	eng, err := engine.New(config.Config{
		CacheDirectory: dir,
		Name:           "docs",
		Store:          "instant",
		Version:        "v1",
	})
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	defer eng.Shutdown(ctx)

	// A build result keyed by identifier and content etag.
	if err := eng.Store(ctx, "src/app.js", "etag-1", []byte("compiled output")); err != nil {
		log.Fatal(err)
	}

	hit, err := eng.Lookup(ctx, "src/app.js", "etag-1")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hit.Hit, string(hit.Data))

	// A changed source file means a changed etag, so the entry is stale.
	stale, err := eng.Lookup(ctx, "src/app.js", "etag-2")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(stale.Hit)

	// Output:
	// true compiled output
	// false
}
