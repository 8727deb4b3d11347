// Package testutil provides the helper process pattern used to test code
// that executes external commands.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
)

// HelperProcessConfig configures the behavior of TestHelperProcess.
type HelperProcessConfig struct {
	// ExitCode is the exit code to return (default 0).
	ExitCode int `json:"exit_code"`
	// Stdout is the content to write to stdout.
	Stdout string `json:"stdout"`
	// Stderr is the content to write to stderr.
	Stderr string `json:"stderr"`
	// EchoArgs writes each argument after "--" to stdout, one per line.
	EchoArgs bool `json:"echo_args"`
	// EchoEnv lists variables whose NAME=value is written to stdout.
	EchoEnv []string `json:"echo_env"`
	// WriteFile, when set, is created with Stdout as its content.
	WriteFile string `json:"write_file"`
}

// Environment variable names used by TestHelperProcess.
const (
	// EnvWantHelperProcess signals that the test binary should run as a helper process.
	EnvWantHelperProcess = "GO_WANT_HELPER_PROCESS"
	// EnvHelperProcessConfig contains JSON-encoded HelperProcessConfig.
	EnvHelperProcessConfig = "GO_HELPER_PROCESS_CONFIG"
)

// TestHelperProcess is called from a test function to implement the helper
// process pattern. When invoked with GO_WANT_HELPER_PROCESS=1 it behaves as a
// mock subprocess and exits without returning.
//
// Usage in test file:
//
//	func TestHelperProcess(t *testing.T) {
//	    testutil.TestHelperProcess(t)
//	}
func TestHelperProcess(t *testing.T) {
	if os.Getenv(EnvWantHelperProcess) != "1" {
		return
	}
	runHelperProcess(parseHelperConfig(), HelperArgs(os.Args))
}

func parseHelperConfig() HelperProcessConfig {
	config := HelperProcessConfig{}
	if configJSON := os.Getenv(EnvHelperProcessConfig); configJSON != "" {
		// Ignore parse errors; use defaults on failure
		_ = json.Unmarshal([]byte(configJSON), &config)
	}
	return config
}

// runHelperProcess executes the helper process behavior and always exits.
func runHelperProcess(config HelperProcessConfig, args []string) {
	if config.WriteFile != "" {
		if err := os.WriteFile(config.WriteFile, []byte(config.Stdout), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(97)
		}
	}
	if config.Stdout != "" {
		fmt.Fprint(os.Stdout, config.Stdout)
	}
	if config.EchoArgs {
		for _, a := range args {
			fmt.Fprintln(os.Stdout, a)
		}
	}
	for _, name := range config.EchoEnv {
		fmt.Fprintf(os.Stdout, "%s=%s\n", name, os.Getenv(name))
	}
	if config.Stderr != "" {
		fmt.Fprint(os.Stderr, config.Stderr)
	}
	os.Exit(config.ExitCode)
}

// HelperArgs returns the arguments after the first "--".
func HelperArgs(argv []string) []string {
	for i, a := range argv {
		if a == "--" {
			return argv[i+1:]
		}
	}
	return nil
}

// HelperEnv returns the environment entries that turn the test binary into
// a helper process with the given behavior.
func HelperEnv(t *testing.T, config HelperProcessConfig) []string {
	t.Helper()
	configJSON, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("encoding helper config: %v", err)
	}
	return []string{
		EnvWantHelperProcess + "=1",
		EnvHelperProcessConfig + "=" + string(configJSON),
	}
}

// HelperCommandLine returns a command line that re-executes the test binary
// running only testName. Arguments placed after it are visible to the
// helper through HelperArgs.
func HelperCommandLine(t *testing.T, testName string) string {
	t.Helper()
	testBinary, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to get test binary path: %v", err)
	}
	return fmt.Sprintf("'%s' -test.run=^%s$ --", strings.ReplaceAll(testBinary, "'", `'\''`), testName)
}
