//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	APIEndpoint string
	APIToken    string
	Cluster     string
	Channel     string
	CmaPath     string
	Verbose     bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		APIEndpoint: os.Getenv("CMA_API"),
		APIToken:    os.Getenv("CMA_TOKEN"),
		Cluster:     os.Getenv("CMA_REALTIME_CLUSTER"),
		Channel:     os.Getenv("CMA_REALTIME_CHANNEL"),
		CmaPath:     getCmaPath(),
		Verbose:     os.Getenv("CMA_VERBOSE") == "true",
	}
}

// getCmaPath determines the path to the cma binary
func getCmaPath() string {
	if path := os.Getenv("CMA_BINARY_PATH"); path != "" {
		return path
	}

	// Try common locations
	candidates := []string{
		"../../cma",
		"./cma",
		"../cma",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "cma" // Fallback to PATH
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.APIEndpoint == "" || config.APIToken == "" {
		t.Skip("CMA_API or CMA_TOKEN not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.CmaPath); err != nil {
		t.Skipf("cma binary not found at %s, skipping integration test", config.CmaPath)
	}
}

// CommandRunner provides utilities for running cma commands
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		t:      t,
	}
}

// Run executes a cma command and returns output. The endpoint and token
// reach the binary through the CMA_* environment.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(runner.config.CmaPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.CmaPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// DecodeJSONOutput decodes command output, failing the test if it is not JSON
func DecodeJSONOutput(t *testing.T, output string, out interface{}) {
	t.Helper()

	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), out); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
}
