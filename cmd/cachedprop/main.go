package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmgilman/go/fs/billy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/sync/errgroup"

	property "github.com/krisalay/cached-property"
	"github.com/krisalay/cached-property/config"
	"github.com/krisalay/cached-property/metrics"
)

// ================= OWNER =================

type Report struct {
	property.Slots
	Region string
	Parent *Report
}

// ================= PROPERTIES =================

type properties struct {
	summary  *property.Property[*Report, string]
	headline *property.Property[*Report, string]
	depth    *property.Property[*Report, int]
}

func newProperties(cfg config.Config, m *metrics.Prometheus) (*properties, error) {
	logger := cfg.Logger(os.Stderr)
	opts := []property.Option{
		property.WithConfig(cfg),
		property.WithLogger(logger),
		property.WithMetrics(m),
	}
	p := &properties{}

	var err error
	p.summary, err = property.New("summary", func(_ context.Context, r *Report) (string, error) {
		fmt.Println("COMPUTE → summary for", r.Region)
		time.Sleep(200 * time.Millisecond)
		return "sales in " + r.Region + " are up", nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	// headline reads summary from inside its own computation.
	p.headline, err = property.New("headline", func(ctx context.Context, r *Report) (string, error) {
		fmt.Println("COMPUTE → headline for", r.Region)
		s, err := p.summary.Get(ctx, r)
		if err != nil {
			return "", err
		}
		return "BREAKING: " + s, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	// depth reads itself for the parent report while holding its own lock.
	p.depth, err = property.New("depth", func(ctx context.Context, r *Report) (int, error) {
		fmt.Println("COMPUTE → depth for", r.Region)
		if r.Parent == nil {
			return 0, nil
		}
		d, err := p.depth.Get(ctx, r.Parent)
		return d + 1, err
	}, opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func loadConfig(args []string) (config.Config, error) {
	if len(args) == 0 {
		return config.Config{TTL: time.Second, Threaded: true}, nil
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(billy.NewLocal(), path)
}

// ================= MAIN =================

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fmt.Println("\n==================== SYSTEM BOOT ====================")
	fmt.Println("TTL       :", cfg.TTL)
	fmt.Println("THREADED  :", cfg.Threaded)
	if cfg.Store != "" {
		fmt.Println("STORE     :", cfg.Store)
	} else {
		fmt.Println("STORE     : none (memory only)")
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg, "cachedprop")

	props, err := newProperties(cfg, m)
	if err != nil {
		return err
	}
	summary, headline, depth := props.summary, props.headline, props.depth

	world := &Report{Region: "world"}
	report := &Report{Region: "emea", Parent: world}

	// ====================================================
	fmt.Println("\n==================== 1) COMPUTE ONCE ====================")
	for i := 0; i < 3; i++ {
		v, err := summary.Get(ctx, report)
		if err != nil {
			return err
		}
		fmt.Println("GET    → summary =", v)
	}

	// ====================================================
	fmt.Println("\n==================== 2) NESTED PROPERTIES ====================")
	v, err := headline.Get(ctx, report)
	if err != nil {
		return err
	}
	fmt.Println("GET    → headline =", v)

	// ====================================================
	fmt.Println("\n==================== 3) SAME-PROPERTY REENTRANCY ====================")
	city := &Report{Region: "paris", Parent: &Report{Region: "france", Parent: report}}
	d, err := depth.Get(ctx, city)
	if err != nil {
		return err
	}
	fmt.Println("GET    → depth of paris =", d)

	// ====================================================
	fmt.Println("\n==================== 4) CONCURRENT ACCESS ====================")
	fresh := &Report{Region: "apac"}
	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			v, err := summary.Get(ctx, fresh)
			if err == nil {
				fmt.Printf("GOROUTINE-%d → summary = %v\n", i, v)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// ====================================================
	if cfg.TTL > 0 {
		fmt.Println("\n==================== 5) TTL EXPIRATION ====================")
		time.Sleep(cfg.TTL + 100*time.Millisecond)
		fmt.Println("CLOCK  → waited past TTL")
		v, err = summary.Get(ctx, report)
		if err != nil {
			return err
		}
		fmt.Println("GET    → summary =", v)
	}

	// ====================================================
	fmt.Println("\n==================== 6) CLEAR ====================")
	summary.Clear(ctx, report)
	fmt.Println("CLEAR  → summary")
	v, err = summary.Get(ctx, report)
	if err != nil {
		return err
	}
	fmt.Println("GET    → summary after clear =", v)

	// ====================================================
	fmt.Println("\n==================== METRICS ====================")
	for _, name := range []string{"summary", "headline", "depth"} {
		fmt.Printf("%-9s HITS %.0f  MISSES %.0f  EXPIRED %.0f  COMPUTED %.0f  STORE ERRORS %.0f\n",
			name,
			testutil.ToFloat64(m.Hits.WithLabelValues(name)),
			testutil.ToFloat64(m.Misses.WithLabelValues(name)),
			testutil.ToFloat64(m.Expirations.WithLabelValues(name)),
			testutil.ToFloat64(m.Computations.WithLabelValues(name)),
			testutil.ToFloat64(m.StoreErrors.WithLabelValues(name)),
		)
	}
	return nil
}
