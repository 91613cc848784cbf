// Command loadtest fires a burst of concurrent payment submissions at
// a running gateway, for manual smoke-testing of the reactor under
// load.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type paymentRequest struct {
	CorrelationID string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
}

func main() {
	var (
		total       = flag.Int("n", 500, "total requests to send")
		concurrency = flag.Int("c", 20, "concurrent in-flight requests")
		target      = flag.String("url", "http://localhost:9999/payments", "gateway payments endpoint")
	)
	flag.Parse()

	var success, timeout, failed int64

	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup

	client := &http.Client{Timeout: 2 * time.Second}

	for i := 0; i < *total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			payload := paymentRequest{
				CorrelationID: correlationID(i),
				Amount:        19.90,
			}
			body, _ := json.Marshal(payload)
			req, err := http.NewRequest(http.MethodPost, *target, bytes.NewReader(body))
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					atomic.AddInt64(&timeout, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
				return
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)

			if resp.StatusCode == http.StatusOK {
				atomic.AddInt64(&success, 1)
			} else {
				atomic.AddInt64(&failed, 1)
			}
		}(i)
	}
	wg.Wait()

	fmt.Printf("success: %d\ntimeout: %d\nfailed: %d\n", success, timeout, failed)
}

// correlationID produces a deterministic, exactly-36-byte ASCII id —
// the reactor's classifier rejects anything else as BadRequest.
func correlationID(i int) string {
	return fmt.Sprintf("loadtest-%027d", i)
}
