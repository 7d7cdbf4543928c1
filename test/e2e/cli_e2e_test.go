package e2e

import (
	"errors"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// buildBinary compiles cmd/raysplit into a temporary directory. The test
// runs from test/e2e, two levels below the module root.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "raysplit"
	if runtime.GOOS == "windows" {
		binName = "raysplit.exe"
	}
	binPath := filepath.Join(t.TempDir(), binName)

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/raysplit")
	cmd.Dir = "../.."
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to build raysplit: %v", err)
	}
	return binPath
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// TestCLI_E2E verifies the built binary functions correctly.
func TestCLI_E2E(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binPath := buildBinary(t)
	small := []string{"-width", "40", "-height", "30", "-np", "3", "-no-save"}

	tests := []struct {
		name     string
		args     []string
		wantOut  string // substring match (case-insensitive)
		wantCode int
	}{
		{
			name:    "Strips Vertical",
			args:    append([]string{"-mode", "strips-vertical"}, small...),
			wantOut: "C-to-C Ratio: ",
		},
		{
			name:    "Startup Summary",
			args:    append([]string{"-mode", "1", "-scene", "mandelbrot"}, small...),
			wantOut: "Partitioning scheme: 1",
		},
		{
			name:    "Dynamic",
			args:    append([]string{"-mode", "dynamic", "-block-width", "8", "-block-height", "8"}, small...),
			wantOut: "Execution Time: ",
		},
		{
			name:    "All Modes Comparison",
			args:    append([]string{"-mode", "all"}, small...),
			wantOut: "All images are identical",
		},
		{
			name:    "Help",
			args:    []string{"--help"},
			wantOut: "usage",
		},
		{
			name:    "Version Flag",
			args:    []string{"--version"},
			wantOut: "raysplit",
		},
		{
			name:     "Unsupported Mode",
			args:     append([]string{"-mode", "9"}, small...),
			wantOut:  "not supported",
			wantCode: 5,
		},
		{
			name:     "Zero Cycle Size",
			args:     append([]string{"-mode", "cycles-vertical", "-cycle-size", "0"}, small...),
			wantOut:  "cycle size",
			wantCode: 4,
		},
		{
			name:     "Unknown Scene",
			args:     append([]string{"-scene", "teapot"}, small...),
			wantOut:  "unknown scene",
			wantCode: 4,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binPath, tt.args...)
			cmd.Env = append(os.Environ(), "NO_COLOR=1")
			output, err := cmd.CombinedOutput()
			outStr := string(output)

			if code := exitCode(err); code != tt.wantCode {
				t.Errorf("exit code %d, want %d\nOutput: %s", code, tt.wantCode, outStr)
			}
			if tt.wantOut != "" && !strings.Contains(strings.ToLower(outStr), strings.ToLower(tt.wantOut)) {
				t.Errorf("Output missing expected string.\nExpected: %q\nGot:\n%s", tt.wantOut, outStr)
			}
		})
	}
}

// TestCLI_E2E_SavesImage checks the file written by a default render.
func TestCLI_E2E_SavesImage(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binPath := buildBinary(t)
	dir := t.TempDir()

	cmd := exec.Command(binPath, "-width", "32", "-height", "16", "-np", "2", "-mode", "blocks", "-output-dir", dir, "-format", "tiff")
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("render failed: %v\n%s", err, output)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "spheres_*.tiff"))
	if len(files) != 1 {
		t.Fatalf("saved files = %v\n%s", files, output)
	}
	if !strings.Contains(string(output), "Image will be saved to: "+files[0]) {
		t.Errorf("announced path differs from %s:\n%s", files[0], output)
	}
}

// TestCLI_E2E_TCP runs one process per rank over the TCP transport.
func TestCLI_E2E_TCP(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binPath := buildBinary(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	const procs = 3
	outputs := make([][]byte, procs)
	errs := make([]error, procs)
	var wg sync.WaitGroup
	for rank := 0; rank < procs; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			cmd := exec.Command(binPath, "-width", "30", "-height", "20", "-mode", "dynamic",
				"-block-width", "7", "-block-height", "7", "-np", strconv.Itoa(procs),
				"-rank", strconv.Itoa(rank), "-transport", "tcp", "-addr", addr, "-no-save")
			cmd.Env = append(os.Environ(), "NO_COLOR=1")
			outputs[rank], errs[rank] = cmd.CombinedOutput()
		}(rank)
	}
	wg.Wait()

	for rank := range errs {
		if errs[rank] != nil {
			t.Errorf("rank %d: %v\n%s", rank, errs[rank], outputs[rank])
		}
	}
	if !strings.Contains(string(outputs[0]), "Total Computation Time: ") {
		t.Errorf("coordinator output lacks the timing report:\n%s", outputs[0])
	}
}
