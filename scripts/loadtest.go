//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseLat = 12.9716
	baseLng = 77.5946
)

var baseURL = envOr("BASE_URL", "http://localhost:8080")

type participant struct {
	ID    string
	Role  string
	Token string
}

type Stats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalLatency    int64
	MinLatency      int64
	MaxLatency      int64
}

func newStats() *Stats {
	return &Stats{MinLatency: int64(^uint64(0) >> 1)}
}

func (s *Stats) record(latency int64, ok bool) {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.TotalLatency, latency)
	if !ok {
		atomic.AddInt64(&s.FailedRequests, 1)
		return
	}
	atomic.AddInt64(&s.SuccessRequests, 1)

	for {
		old := atomic.LoadInt64(&s.MinLatency)
		if latency >= old || atomic.CompareAndSwapInt64(&s.MinLatency, old, latency) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&s.MaxLatency)
		if latency <= old || atomic.CompareAndSwapInt64(&s.MaxLatency, old, latency) {
			break
		}
	}
}

func main() {
	fmt.Println("Ride Dispatch Load Test")
	fmt.Println("=======================")

	fmt.Println("\n1. Registering participants...")
	riders, drivers := createTestData(20, 50)
	if len(riders) == 0 || len(drivers) == 0 {
		log.Fatal("Failed to create test data")
	}
	fmt.Printf("Registered %d riders and %d drivers\n", len(riders), len(drivers))

	fmt.Println("\n2. Requesting rides (100 rides, 10 concurrent)...")
	rideIDs, stats := testRideRequests(riders, 100, 10)
	printStats("Ride Requests", stats)

	fmt.Println("\n3. Accept storm (every driver races for each ride)...")
	stats, wins, conflicts := testAcceptStorm(rideIDs[:min(len(rideIDs), 10)], drivers)
	printStats("Accept Storm", stats)
	fmt.Printf("  Winners:          %d\n", wins)
	fmt.Printf("  Conflicts (409):  %d\n", conflicts)

	fmt.Println("\n4. Polling available rides (30 seconds)...")
	stats = testAvailablePolling(drivers, 30*time.Second)
	printStats("Available Rides", stats)

	fmt.Println("\nLoad test completed!")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func call(p participant, method, path string, body any) (int, map[string]any, error) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, baseURL+path, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case p.Token != "":
		req.Header.Set("Authorization", "Bearer "+p.Token)
	case p.ID != "":
		req.Header.Set("X-Actor-ID", p.ID)
		req.Header.Set("X-Actor-Role", p.Role)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var out map[string]any
	json.Unmarshal(data, &out)
	return resp.StatusCode, out, nil
}

func register(path, role string, body any) (participant, bool) {
	code, out, err := call(participant{}, http.MethodPost, path, body)
	if err != nil || code != http.StatusCreated {
		return participant{}, false
	}
	id, _ := out["id"].(string)
	token, _ := out["token"].(string)
	return participant{ID: id, Role: role, Token: token}, id != ""
}

func createTestData(numRiders, numDrivers int) ([]participant, []participant) {
	var riders, drivers []participant

	for i := 0; i < numRiders; i++ {
		p, ok := register("/v1/riders", "rider", map[string]any{
			"phone": fmt.Sprintf("98%08d", rand.Intn(100000000)),
			"name":  fmt.Sprintf("LoadTest Rider %d", i),
		})
		if ok {
			riders = append(riders, p)
		}
	}

	vehicleTypes := []string{"hatchback", "sedan", "suv", "bike"}
	for i := 0; i < numDrivers; i++ {
		p, ok := register("/v1/drivers", "driver", map[string]any{
			"phone":          fmt.Sprintf("91%08d", rand.Intn(100000000)),
			"name":           fmt.Sprintf("LoadTest Driver %d", i),
			"license_number": fmt.Sprintf("DL%07d", rand.Intn(10000000)),
			"vehicle": map[string]string{
				"plate_number": fmt.Sprintf("KA%02dAB%04d", rand.Intn(99), rand.Intn(10000)),
				"vehicle_type": vehicleTypes[rand.Intn(len(vehicleTypes))],
				"model":        "Dzire",
			},
		})
		if ok {
			drivers = append(drivers, p)
		}
	}

	return riders, drivers
}

func randomLocation(name string) map[string]any {
	return map[string]any{
		"address": name,
		"lat":     baseLat + (rand.Float64()-0.5)*0.1,
		"lng":     baseLng + (rand.Float64()-0.5)*0.1,
	}
}

func testRideRequests(riders []participant, numRequests, concurrency int) ([]string, *Stats) {
	stats := newStats()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		rideIDs   []string
		semaphore = make(chan struct{}, concurrency)
	)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(rider participant) {
			defer wg.Done()
			defer func() { <-semaphore }()

			start := time.Now()
			code, out, err := call(rider, http.MethodPost, "/v1/rides", map[string]any{
				"pickup": randomLocation("Load Test Pickup"),
				"drop":   randomLocation("Load Test Drop"),
			})
			ok := err == nil && code == http.StatusCreated
			stats.record(time.Since(start).Milliseconds(), ok)

			if ok {
				mu.Lock()
				rideIDs = append(rideIDs, out["id"].(string))
				mu.Unlock()
			}
		}(riders[rand.Intn(len(riders))])
	}

	wg.Wait()
	return rideIDs, stats
}

// testAcceptStorm checks that each ride gets exactly one driver no matter
// how many accept at once.
func testAcceptStorm(rideIDs []string, drivers []participant) (*Stats, int64, int64) {
	stats := newStats()
	var wins, conflicts int64

	for _, rideID := range rideIDs {
		var (
			wg          sync.WaitGroup
			start       = make(chan struct{})
			rideWinners int64
		)
		for _, d := range drivers {
			wg.Add(1)
			go func(d participant) {
				defer wg.Done()
				<-start

				begin := time.Now()
				code, _, err := call(d, http.MethodPost, "/v1/rides/"+rideID+"/accept", nil)
				latency := time.Since(begin).Milliseconds()

				switch {
				case err == nil && code == http.StatusOK:
					atomic.AddInt64(&rideWinners, 1)
					stats.record(latency, true)
				case err == nil && code == http.StatusConflict:
					atomic.AddInt64(&conflicts, 1)
					stats.record(latency, true)
				default:
					stats.record(latency, false)
				}
			}(d)
		}
		close(start)
		wg.Wait()

		if rideWinners != 1 {
			fmt.Printf("  !! ride %s had %d winners\n", rideID, rideWinners)
		}
		wins += rideWinners
	}

	return stats, wins, conflicts
}

func testAvailablePolling(drivers []participant, duration time.Duration) *Stats {
	stats := newStats()
	var wg sync.WaitGroup
	done := make(chan struct{})

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					d := drivers[rand.Intn(len(drivers))]
					start := time.Now()
					code, _, err := call(d, http.MethodGet, "/v1/rides/available", nil)
					stats.record(time.Since(start).Milliseconds(), err == nil && code == http.StatusOK)
					time.Sleep(10 * time.Millisecond)
				}
			}
		}()
	}

	time.Sleep(duration)
	close(done)
	wg.Wait()

	return stats
}

func printStats(name string, stats *Stats) {
	avgLatency := float64(0)
	if stats.TotalRequests > 0 {
		avgLatency = float64(stats.TotalLatency) / float64(stats.TotalRequests)
	}

	fmt.Printf("\n%s Results:\n", name)
	fmt.Printf("  Total Requests:   %d\n", stats.TotalRequests)
	fmt.Printf("  Successful:       %d\n", stats.SuccessRequests)
	fmt.Printf("  Failed:           %d\n", stats.FailedRequests)
	if stats.TotalRequests > 0 {
		fmt.Printf("  Success Rate:     %.2f%%\n", float64(stats.SuccessRequests)/float64(stats.TotalRequests)*100)
	}
	fmt.Printf("  Avg Latency:      %.2f ms\n", avgLatency)
	if stats.MinLatency != int64(^uint64(0)>>1) {
		fmt.Printf("  Min Latency:      %d ms\n", stats.MinLatency)
	}
	fmt.Printf("  Max Latency:      %d ms\n", stats.MaxLatency)
}
