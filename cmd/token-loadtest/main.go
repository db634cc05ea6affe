// Command token-loadtest drives a goToken engine through issue, verify,
// refresh-lookup and remove phases against Redis (or an in-process miniredis)
// and prints per-phase latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/refresh"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type options struct {
	subjects    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
	idFormat    string
	sqlite      string
}

func main() {
	var opts options
	flag.IntVar(&opts.subjects, "subjects", 10000, "number of token pairs to seed")
	flag.IntVar(&opts.concurrency, "concurrency", 256, "number of concurrent workers")
	flag.IntVar(&opts.ops, "ops", 200000, "operations per phase")
	flag.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flag.StringVar(&opts.prefix, "prefix", refresh.DefaultRedisPrefix, "refresh key prefix")
	flag.StringVar(&opts.idFormat, "id-format", string(refresh.IDOpaque), "refresh id format: opaque, uuid or ulid")
	flag.StringVar(&opts.sqlite, "sqlite", "", "sqlite dsn; when set, refresh records go to sqlite instead of redis")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if opts.subjects <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	if err := run(context.Background(), opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	cfg := goToken.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-secret-0123456789abcdef")
	cfg.Refresh.RedisPrefix = opts.prefix
	cfg.Refresh.IDFormat = refresh.IDFormat(opts.idFormat)
	cfg.Scope.Registry.Resources = map[string]string{"admin": "a", "reports": "r", "billing": "b"}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	builder := goToken.New().WithConfig(cfg).WithLogger(logger)

	if opts.sqlite != "" {
		builder.WithSQLite(opts.sqlite)
		fmt.Printf("using sqlite at %s\n", opts.sqlite)
	} else {
		client, cleanup, err := redisClient(opts.redisAddr)
		if err != nil {
			return err
		}
		defer cleanup()
		builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	inputs := make([]goToken.Input, opts.subjects)
	for i := range inputs {
		inputs[i] = goToken.Input{
			SubjectID: fmt.Sprintf("user-%d", i),
			TenantID:  fmt.Sprintf("tenant-%d", i%64),
			Admin:     i%10 == 0,
			Grants:    []goToken.Grant{{Resource: "reports", Action: "read"}},
		}
	}

	fmt.Printf("seeding %d token pairs...\n", opts.subjects)
	startSeed := time.Now()
	seeded := make([]goToken.Tokens, opts.subjects)
	for i, in := range inputs {
		tokens, err := engine.CreateTokens(ctx, in)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		seeded[i] = tokens
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	issue := runPhase(ctx, opts, func(ctx context.Context, r *rand.Rand, _ int) error {
		_, err := engine.CreateTokens(ctx, inputs[r.Intn(len(inputs))])
		return err
	})
	verify := runPhase(ctx, opts, func(ctx context.Context, r *rand.Rand, _ int) error {
		_, err := engine.Verify(ctx, seeded[r.Intn(len(seeded))].AccessToken)
		return err
	})
	lookup := runPhase(ctx, opts, func(ctx context.Context, r *rand.Rand, _ int) error {
		rec, err := engine.GetPayload(ctx, seeded[r.Intn(len(seeded))].RefreshToken, nil)
		if err == nil && rec == nil {
			return fmt.Errorf("refresh record missing")
		}
		return err
	})
	remove := runPhase(ctx, opts, func(ctx context.Context, _ *rand.Rand, i int) error {
		_, err := engine.RemoveRefreshToken(ctx, seeded[i%len(seeded)].RefreshToken)
		return err
	})

	fmt.Println("---- results ----")
	printStats("issue", issue)
	printStats("verify", verify)
	printStats("lookup", lookup)
	printStats("remove", remove)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: access=%d refresh=%d verify_ok=%d lookup_hit=%d removed=%d remove_miss=%d\n",
		snap.Counters[goToken.MetricAccessIssued],
		snap.Counters[goToken.MetricRefreshIssued],
		snap.Counters[goToken.MetricVerifySuccess],
		snap.Counters[goToken.MetricRefreshLookupHit],
		snap.Counters[goToken.MetricRefreshRemoved],
		snap.Counters[goToken.MetricRefreshRemoveMiss],
	)
	return nil
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return client, func() { _ = client.Close() }, nil
}

type opFunc func(ctx context.Context, r *rand.Rand, i int) error

func runPhase(ctx context.Context, opts options, op opFunc) phaseStats {
	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		worker := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, opts.ops/opts.concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.ops {
					break
				}
				t0 := time.Now()
				if err := op(gctx, r, i); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
