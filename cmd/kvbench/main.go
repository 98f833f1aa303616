// kvbench measures write latency against a running leader: n writes
// spread over c workers, reporting quorum failures and percentiles.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"semikv/internal/wire"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8000", "leader base URL")
	n := flag.Int("n", 200, "total writes")
	c := flag.Int("c", 10, "concurrent workers")
	prefix := flag.String("prefix", "bench", "key prefix")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	type sample struct {
		latency time.Duration
		status  int
		err     error
	}

	jobs := make(chan int)
	samples := make([]sample, *n)

	var wg sync.WaitGroup
	for w := 0; w < *c; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				key := fmt.Sprintf("%s-%d", *prefix, i)
				body, _ := json.Marshal(wire.PutRequest{Value: fmt.Sprintf("v%d", i)})

				start := time.Now()
				req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/kv/%s", *addr, key), bytes.NewReader(body))
				if err != nil {
					samples[i] = sample{err: err}
					continue
				}
				req.Header.Set("Content-Type", "application/json")
				resp, err := client.Do(req)
				if err != nil {
					samples[i] = sample{latency: time.Since(start), err: err}
					continue
				}
				resp.Body.Close()
				samples[i] = sample{latency: time.Since(start), status: resp.StatusCode}
			}
		}()
	}

	benchStart := time.Now()
	for i := 0; i < *n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	total := time.Since(benchStart)

	var ok, quorumFailed, errored int
	latencies := make([]time.Duration, 0, *n)
	for _, s := range samples {
		switch {
		case s.err != nil:
			errored++
		case s.status == http.StatusOK:
			ok++
			latencies = append(latencies, s.latency)
		case s.status == http.StatusServiceUnavailable:
			quorumFailed++
		default:
			errored++
		}
	}

	fmt.Printf("writes=%d ok=%d quorum_failed=%d errors=%d elapsed=%v rate=%.1f/s\n",
		*n, ok, quorumFailed, errored, total.Round(time.Millisecond),
		float64(*n)/total.Seconds())

	if len(latencies) == 0 {
		os.Exit(1)
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pct := func(p float64) time.Duration {
		idx := int(p * float64(len(latencies)-1))
		return latencies[idx]
	}
	fmt.Printf("latency avg=%v p50=%v p95=%v p99=%v max=%v\n",
		(sum / time.Duration(len(latencies))).Round(time.Microsecond),
		pct(0.50).Round(time.Microsecond),
		pct(0.95).Round(time.Microsecond),
		pct(0.99).Round(time.Microsecond),
		latencies[len(latencies)-1].Round(time.Microsecond))
}
