package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduler/internal/db"
)

// simulate drives concurrent booking traffic against a running api-server to
// demonstrate that contended slots produce exactly one success and clean
// conflicts for everyone else.

type simConfig struct {
	apiBaseURL string
	duration   time.Duration
	workers    int
	days       int
	slotCount  int
}

type dataPool struct {
	doctors  []uuid.UUID
	patients []uuid.UUID
}

type metrics struct {
	total     int64
	success   int64
	conflict  int64
	clientErr int64
	serverErr int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.conflict, 1)
	case status >= 400 && status < 500:
		atomic.AddInt64(&m.clientErr, 1)
	default:
		atomic.AddInt64(&m.serverErr, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *metrics) report() {
	m.mu.Lock()
	latencies := make([]time.Duration, len(m.latencies))
	copy(latencies, m.latencies)
	m.mu.Unlock()

	fmt.Printf("requests:   %d\n", atomic.LoadInt64(&m.total))
	fmt.Printf("booked:     %d\n", atomic.LoadInt64(&m.success))
	fmt.Printf("conflicts:  %d\n", atomic.LoadInt64(&m.conflict))
	fmt.Printf("client err: %d\n", atomic.LoadInt64(&m.clientErr))
	fmt.Printf("server err: %d\n", atomic.LoadInt64(&m.serverErr))

	if len(latencies) == 0 {
		return
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	fmt.Printf("latency:    avg=%s p50=%s p95=%s max=%s\n",
		sum/time.Duration(len(latencies)),
		latencies[len(latencies)/2],
		latencies[p95Idx],
		latencies[len(latencies)-1],
	)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := simConfig{
		apiBaseURL: getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		duration:   getDurationEnv("SIM_DURATION", 30*time.Second),
		workers:    getIntEnv("SIM_WORKERS", 16),
		days:       getIntEnv("SIM_DAYS", 3),
		slotCount:  getIntEnv("SIM_SLOTS", 9),
	}

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required to load doctors and patients")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	data, err := loadPool(context.Background(), pool)
	pool.Close()
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	if len(data.doctors) == 0 || len(data.patients) == 0 {
		log.Fatal("no doctors or patients found, run cmd/seed first")
	}

	log.Printf("simulating: %d workers for %s against %s (%d doctors, %d patients)",
		cfg.workers, cfg.duration, cfg.apiBaseURL, len(data.doctors), len(data.patients))

	deadline := time.Now().Add(cfg.duration)
	client := &http.Client{Timeout: 5 * time.Second}
	m := &metrics{}

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for time.Now().Before(deadline) {
				bookOnce(client, cfg, data, rng, m)
			}
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()

	m.report()
}

func bookOnce(client *http.Client, cfg simConfig, data *dataPool, rng *rand.Rand, m *metrics) {
	doctor := data.doctors[rng.Intn(len(data.doctors))]
	patient := data.patients[rng.Intn(len(data.patients))]
	day := time.Now().UTC().AddDate(0, 0, rng.Intn(cfg.days)).Format("2006-01-02")

	body, _ := json.Marshal(map[string]any{
		"doctor_id":  doctor.String(),
		"patient_id": patient.String(),
		"date":       day,
		"slot_index": rng.Intn(cfg.slotCount),
	})

	start := time.Now()
	resp, err := client.Post(cfg.apiBaseURL+"/appointments", "application/json", bytes.NewReader(body))
	latency := time.Since(start)
	if err != nil {
		m.record(latency, http.StatusInternalServerError)
		return
	}
	resp.Body.Close()
	m.record(latency, resp.StatusCode)
}

func loadPool(ctx context.Context, pool *pgxpool.Pool) (*dataPool, error) {
	data := &dataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM doctors`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		data.doctors = append(data.doctors, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = pool.Query(ctx, `SELECT id FROM patients LIMIT 1000`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		data.patients = append(data.patients, id)
	}
	return data, rows.Err()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
