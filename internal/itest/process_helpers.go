// This file provides helpers for starting and probing a playerbridge server in tests.

package itest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// FreePort returns a TCP port that was free when probed.
func FreePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// BuildBinary compiles cmd/playerbridge into dir and returns the binary path.
func BuildBinary(dir string) (string, error) {
	binPath := filepath.Join(dir, "playerbridge")
	out, err := exec.Command("go", "build", "-o", binPath, "../../cmd/playerbridge").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("build binary: %w: %s", err, out)
	}
	return binPath, nil
}

// StartProcess writes configContent to dir and starts the binary against it.
func StartProcess(ctx context.Context, binPath, dir, configContent string) (*exec.Cmd, error) {
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	cmd := exec.CommandContext(ctx, binPath, "--config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}
	return cmd, nil
}

// WaitForHealth waits for the health endpoint to become available.
// Returns an error if the endpoint is not available within the timeout.
func WaitForHealth(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("http://localhost:%d/healthz", port)

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("health endpoint not available after %v", timeout)
}
