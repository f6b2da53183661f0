package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// probeClient opens a fresh connection per probe; the engine sees one
// connection per call everywhere else, so the probe behaves the same.
var probeClient = &http.Client{
	Transport: &http.Transport{DisableKeepAlives: true},
}

// DefaultProbe checks engine readiness with an HTTP GET against its
// health endpoint. Any 200 response means ready.
func DefaultProbe(ctx context.Context, port int) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	u := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		panic(err)
	}

	resp, err := probeClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status code %d", resp.StatusCode)
	}
	return nil
}
