package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// buildNeardupBinary builds cmd/neardup into a temporary directory
func buildNeardupBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "neardup")

	// Build from the project root (one level up from e2e directory)
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/neardup")
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}
	cmd.Dir = projectRoot

	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build neardup binary: %v\n%s", err, out)
	}
	return binaryPath
}

// createCorpusFile writes a corpus file into dir and returns its path
func createCorpusFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create corpus file %s: %v", filename, err)
	}
	return path
}

// createTestConfigFile writes a .neardup.toml into dir
func createTestConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	configFile := filepath.Join(dir, ".neardup.toml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
}

// runNeardup runs the binary and returns stdout, stderr and the run error
func runNeardup(binaryPath string, args ...string) (string, string, error) {
	cmd := exec.Command(binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
