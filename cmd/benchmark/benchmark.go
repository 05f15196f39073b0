package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"golang.org/x/sync/errgroup"

	property "github.com/krisalay/cached-property"
	"github.com/krisalay/cached-property/store"
)

// ================= OWNER =================

type Item struct {
	property.Slots
	ID int
}

// ================= BENCHMARK =================

func main() {
	var (
		owners     = flag.Int("owners", 10000, "number of owners")
		goroutines = flag.Int("goroutines", 200, "concurrent readers")
		opsPerG    = flag.Int("ops", 5000, "accesses per reader")
		threaded   = flag.Bool("threaded", false, "guard accesses with the reentrant lock")
		persisted  = flag.Bool("persist", false, "write through to an in-memory store document")
	)
	flag.Parse()

	if err := run(context.Background(), *owners, *goroutines, *opsPerG, *threaded, *persisted); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, owners, goroutines, opsPerG int, threaded, persisted bool) error {
	if owners <= 0 || goroutines <= 0 {
		return errors.New(errors.CodeInvalidInput, "owners and goroutines must be positive")
	}

	fmt.Println("\n================ PROPERTY LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Owners       :", owners)
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", opsPerG)
	fmt.Println("Threaded     :", threaded)
	fmt.Println("Persisted    :", persisted)
	fmt.Println("---------------------------------")

	var opts []property.Option
	if threaded {
		opts = append(opts, property.Threaded())
	}
	if persisted {
		opts = append(opts, property.WithStorePath("/bench.json", store.WithFS(billy.NewMemory())))
	}

	p, err := property.New("square", func(_ context.Context, it *Item) (int, error) {
		return it.ID * it.ID, nil
	}, opts...)
	if err != nil {
		return err
	}

	items := make([]*Item, owners)
	for i := range items {
		items[i] = &Item{ID: i}
	}

	fmt.Println("Warming up...")
	for _, it := range items {
		if _, err := p.Get(ctx, it); err != nil {
			return err
		}
	}
	fmt.Println("Warmup complete.")

	fmt.Println("Running concurrency benchmark...")
	start := time.Now()

	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			for j := 0; j < opsPerG; j++ {
				if _, err := p.Get(ctx, items[(i+j)%owners]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	duration := time.Since(start)
	totalOps := goroutines * opsPerG

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Println("=========================================")
	return nil
}
