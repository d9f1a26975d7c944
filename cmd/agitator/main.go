// Package main - agitator
// Load generator: many concurrent players spamming puzzle actions over the
// websocket, followed by a tuning report read from /metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/config"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	MetricsURL     string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	ErrorFrames      int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

var puzzles = []engine.PuzzleID{engine.PuzzleTimer, engine.PuzzleLightwall, engine.PuzzleMagicBox, engine.PuzzleSnake}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	metricsURL := flag.String("metrics", "http://localhost:8080/metrics", "metrics endpoint, empty to skip the report")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	flag.Parse()

	cfg := Config{
		ServerURL:      *serverURL,
		MetricsURL:     *metricsURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("EL AGITADOR - Sala Trece stress test")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", cfg.ServerURL)
	fmt.Printf("Clients: %d\n", cfg.NumClients)
	fmt.Printf("Interval: %v\n", cfg.ActionInterval)
	fmt.Printf("Duration: %v\n", cfg.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, cfg)
	printResults(stats, cfg)
	if cfg.MetricsURL != "" {
		printTuning(cfg.MetricsURL)
	}
}

func runStressTest(ctx context.Context, cfg Config) *Stats {
	stats := &Stats{Latencies: make([]time.Duration, 0, 10000)}
	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")
	for i := 0; i < cfg.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, cfg, stats)
		}(i)
		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", cfg.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%s recv=%s error_frames=%s errors=%d\n",
					humanize.Comma(atomic.LoadInt64(&stats.MessagesSent)),
					humanize.Comma(atomic.LoadInt64(&stats.MessagesReceived)),
					humanize.Comma(atomic.LoadInt64(&stats.ErrorFrames)),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, cfg Config, stats *Stats) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(clientID)))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		for {
			var msg struct {
				Type string `json:"type"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			if msg.Type == "ERROR" {
				atomic.AddInt64(&stats.ErrorFrames, 1)
			}
		}
	}()

	ticker := time.NewTicker(cfg.ActionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := conn.WriteJSON(randomAction(rng)); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, time.Since(start))
			stats.mu.Unlock()
		}
	}
}

// randomAction picks any action the room accepts on the wire; many will be
// rejected by the room, which is part of the load. Maps keep zero indexes and
// coordinates on the wire.
func randomAction(rng *rand.Rand) map[string]interface{} {
	act := func(t engine.ActionType, kv ...interface{}) map[string]interface{} {
		m := map[string]interface{}{"type": t}
		for i := 0; i+1 < len(kv); i += 2 {
			m[kv[i].(string)] = kv[i+1]
		}
		return m
	}
	switch rng.Intn(8) {
	case 0:
		return act(engine.ActionOpen, "puzzle", puzzles[rng.Intn(len(puzzles))])
	case 1:
		return act(engine.ActionStart)
	case 2:
		return act(engine.ActionLeave)
	case 3:
		return act(engine.ActionPressButton, "index", rng.Intn(18))
	case 4:
		return act(engine.ActionPickRack, "index", rng.Intn(6))
	case 5:
		return act(engine.ActionPickBoard, "x", rng.Intn(3), "y", rng.Intn(3))
	case 6:
		return act(engine.ActionSteer, "x", rng.Intn(10), "y", rng.Intn(10))
	}
	return act(engine.ActionPickClock, "index", rng.Intn(13))
}

func printResults(stats *Stats, cfg Config) {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %s\n", humanize.Comma(sent))
	fmt.Printf("Messages Received: %s\n", humanize.Comma(recv))
	fmt.Printf("Error Frames:      %s\n", humanize.Comma(atomic.LoadInt64(&stats.ErrorFrames)))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / cfg.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	if len(stats.Latencies) > 0 {
		var total time.Duration
		lo, hi := stats.Latencies[0], stats.Latencies[0]
		for _, l := range stats.Latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}
		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(stats.Latencies)))
		fmt.Printf("  Max: %v\n", hi)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("TEST PASSED: system handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("TEST WARNING: some errors detected")
	default:
		fmt.Println("TEST FAILED: high error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  cfg.NumClients,
			"interval": cfg.ActionInterval.String(),
			"duration": cfg.TestDuration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile("stress_test_results.json", jsonData, 0o644); err == nil {
		fmt.Println("\nResults saved to stress_test_results.json")
	}
}

// printTuning reads the server's metrics and prints buffer recommendations
// for the default room.
func printTuning(url string) {
	resp, err := http.Get(url)
	if err != nil {
		log.Printf("metrics unavailable: %v", err)
		return
	}
	defer resp.Body.Close()

	var snapshot map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		log.Printf("metrics unreadable: %v", err)
		return
	}
	cfg := config.Default()
	rec := cfg.Analyze(snapshot)
	fmt.Println("\nTUNING")
	if len(rec.Notes) == 0 {
		fmt.Println("  No changes recommended.")
		return
	}
	for _, n := range rec.Notes {
		fmt.Println("  - " + n)
	}
	tuned := cfg.Apply(rec)
	fmt.Printf("  Suggested network: inbox_buffer=%d client_send_buffer=%d persist_buffer=%d\n",
		tuned.Network.InboxBuffer, tuned.Network.ClientSendBuffer, tuned.Network.PersistBuffer)
}
