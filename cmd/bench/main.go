// Command bench runs a synthetic workload against the cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/arenalru/cache"
	pmet "github.com/IvanBrykalov/arenalru/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ---- Flags ----
	var (
		capacity = flag.Int("cap", 100_000, "cache capacity (entries)")
		ttl      = flag.Duration("ttl", 0, "entry time-to-live (0 = no expiry)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		loadLat  = flag.Duration("load", 0, "serve reads via QueryOrLoad with this simulated load latency (0 = plain Query)")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	if *capacity < 1 || *keys < 1 || *readPct < 0 || *readPct > 100 {
		log.Fatalf("invalid flags: cap=%d keys=%d reads=%d", *capacity, *keys, *readPct)
	}

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "arenalru", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	opt := cache.Options[string, string]{
		Capacity: *capacity,
		TTL:      *ttl,
		Metrics:  metrics,
	}
	if *loadLat > 0 {
		lat := *loadLat
		opt.Loader = func(ctx context.Context, k string) (string, error) {
			select {
			case <-time.After(lat):
				return "loaded:" + k, nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	c := cache.NewSynced[string, string](opt)

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = *capacity / 2
	}
	for i := 0; i < pl; i++ {
		k := "k:" + strconv.Itoa(i)
		if err := c.Insert(k, "v"+strconv.Itoa(i)); err != nil {
			log.Fatalf("preload %s: %v", k, err)
		}
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	useLoader := *loadLat > 0
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workersN; w++ {
		id := w
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					var err error
					if useLoader {
						_, err = c.QueryOrLoad(gctx, keyByZipf())
					} else {
						_, err = c.Query(keyByZipf())
					}
					switch {
					case err == nil:
						atomic.AddUint64(&hits, 1)
					case errors.Is(err, cache.ErrCacheMiss), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
						atomic.AddUint64(&misses, 1)
					default:
						return fmt.Errorf("worker %d: read: %w", id, err)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					k := keyByZipf()
					if err := c.Insert(k, "v"+strconv.Itoa(localR.Int())); err != nil {
						return fmt.Errorf("worker %d: insert %s: %w", id, k, err)
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("workload failed: %v", err)
	}
	elapsed := time.Since(start)

	if err := c.Check(); err != nil {
		log.Fatalf("cache inconsistent after run: %v", err)
	}

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("cap=%d ttl=%v workers=%d keys=%d dur=%v seed=%d\n",
		*capacity, *ttl, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	fmt.Printf("Len()=%d Cap()=%d\n", c.Len(), c.Cap())
}
