package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/auth"
	"github.com/punchamoorthee/backoffice/internal/domain"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	jwtSecret   string
	accounts    int
	replayRatio float64
)

// counters are shared by all workers.
type counters struct {
	total    atomic.Uint64
	created  atomic.Uint64 // 201
	replayed atomic.Uint64 // 200, idempotent replay
	conflict atomic.Uint64 // 409, key still in flight
	rejected atomic.Uint64 // 400, business rule (insufficient funds, inactive)
	errors   atomic.Uint64
}

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.StringVar(&jwtSecret, "secret", os.Getenv("JWT_SECRET"), "HS256 secret used to mint a staff token")
	flag.IntVar(&accounts, "accounts", 1000, "Number of seeded accounts (ids 1..N)")
	flag.Float64Var(&replayRatio, "replay", 0.05, "Fraction of requests that resend the previous Idempotency-Key")
}

func main() {
	flag.Parse()
	if accounts < 2 {
		log.Fatal("-accounts must be at least 2")
	}
	log.Printf("Starting benchmark: %s | workers: %d | duration: %s", workload, concurrency, duration)

	quiet := logrus.New()
	quiet.SetLevel(logrus.WarnLevel)
	token, err := auth.NewJWT(jwtSecret, quiet).Issue(domain.Identity{ID: "benchmark", Privileged: true}, duration+time.Minute)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}

	var c counters
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			run(id, start, token, &c)
		}(i)
	}
	wg.Wait()

	report(&c, time.Since(start))
}

func run(worker int, start time.Time, token string, c *counters) {
	client := &http.Client{Timeout: 5 * time.Second}
	var lastKey string
	var lastBody []byte

	for n := 0; time.Since(start) < duration; n++ {
		key, body := lastKey, lastBody
		if key == "" || rand.Float64() >= replayRatio {
			from, to := pickAccounts()
			body, _ = json.Marshal(map[string]any{
				"conta_origem_id":  from,
				"conta_destino_id": to,
				"tipo":             "TRA",
				"valor":            "1.00",
				"descricao":        "benchmark",
			})
			key = fmt.Sprintf("bench-%d-%d-%d", worker, n, time.Now().UnixNano())
		}
		lastKey, lastBody = key, body

		req, _ := http.NewRequest(http.MethodPost, targetURL+"/transacoes/", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", key)

		resp, err := client.Do(req)
		if err != nil {
			c.errors.Add(1)
			continue
		}
		resp.Body.Close()

		c.total.Add(1)
		switch resp.StatusCode {
		case http.StatusCreated:
			c.created.Add(1)
		case http.StatusOK:
			c.replayed.Add(1)
		case http.StatusConflict:
			c.conflict.Add(1)
		case http.StatusBadRequest:
			c.rejected.Add(1)
		default:
			c.errors.Add(1)
		}
	}
}

// pickAccounts returns two distinct account ids. The hotspot workload sends
// 90% of traffic between accounts 1 and 2.
func pickAccounts() (int64, int64) {
	if workload == "hotspot" && rand.Float32() < 0.90 {
		if rand.Float32() < 0.5 {
			return 1, 2
		}
		return 2, 1
	}

	a := rand.Intn(accounts) + 1
	b := rand.Intn(accounts) + 1
	for a == b {
		b = rand.Intn(accounts) + 1
	}
	return int64(a), int64(b)
}

func report(c *counters, d time.Duration) {
	total := c.total.Load()
	var conflictPct float64
	if total > 0 {
		conflictPct = float64(c.conflict.Load()) / float64(total) * 100
	}

	results := map[string]any{
		"workload":          workload,
		"duration_sec":      d.Seconds(),
		"total_requests":    total,
		"throughput_tps":    float64(total) / d.Seconds(),
		"created":           c.created.Load(),
		"replayed":          c.replayed.Load(),
		"conflicts":         c.conflict.Load(),
		"conflict_rate_pct": conflictPct,
		"rejected":          c.rejected.Load(),
		"errors":            c.errors.Load(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	file, err := os.Create(fmt.Sprintf("results_%s.json", workload))
	if err != nil {
		log.Printf("write results: %v", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
