//go:build integration

package integration_tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// TestServerConfig contains configuration for test server readiness checks
type TestServerConfig struct {
	ReadinessTimeout    time.Duration
	HealthCheckInterval time.Duration
}

// DefaultTestConfig returns a default test configuration
func DefaultTestConfig() *TestServerConfig {
	return &TestServerConfig{
		ReadinessTimeout:    10 * time.Second,
		HealthCheckInterval: 50 * time.Millisecond,
	}
}

// HealthResponse is the body of the preview server health endpoint
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Templates int    `json:"templates"`
	Clients   int    `json:"clients"`
}

// WaitForServerReadiness polls the health endpoint until it reports healthy.
func WaitForServerReadiness(ctx context.Context, baseURL string, config *TestServerConfig) (*HealthResponse, error) {
	if config == nil {
		config = DefaultTestConfig()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, config.ReadinessTimeout)
	defer cancel()

	ticker := time.NewTicker(config.HealthCheckInterval)
	defer ticker.Stop()

	retries := 0
	for {
		select {
		case <-timeoutCtx.Done():
			return nil, fmt.Errorf("server readiness timeout after %v (retries: %d)",
				config.ReadinessTimeout, retries)
		case <-ticker.C:
			retries++
			health, err := checkServerHealth(timeoutCtx, baseURL)
			if err != nil {
				continue
			}
			if health.Status == "healthy" {
				return health, nil
			}
		}
	}
}

func checkServerHealth(ctx context.Context, baseURL string) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, err
	}
	return &health, nil
}

// FindAvailablePort asks the kernel for a free TCP port.
func FindAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
