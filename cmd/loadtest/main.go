// Command loadtest fires concurrent HTTP requests at a running
// apiserver instance and reports throughput and latency, adapted from
// the load-test client shipped alongside the original C++ server.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:8080/api/status", "target URL")
	concurrency := flag.Int("c", 50, "concurrent workers")
	duration := flag.Duration("duration", 10*time.Second, "test duration")
	flag.Parse()

	var (
		total, errors uint64
		latencySumNs  int64
	)

	client := &http.Client{Timeout: 5 * time.Second}
	stop := time.Now().Add(*duration)

	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(stop) {
				start := time.Now()
				resp, err := client.Get(*url)
				if err != nil {
					atomic.AddUint64(&errors, 1)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				atomic.AddInt64(&latencySumNs, time.Since(start).Nanoseconds())
				atomic.AddUint64(&total, 1)
			}
		}()
	}
	wg.Wait()

	if total == 0 {
		log.Fatal("no requests completed")
	}
	avgLatency := time.Duration(latencySumNs / int64(total))
	rps := float64(total) / duration.Seconds()

	fmt.Printf("requests: %d\nerrors: %d\nrps: %.1f\navg latency: %s\n", total, errors, rps, avgLatency)
}
