//go:build basic || database

package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to a shared cgmlens binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// fixtureAnchor is the start time of the meal in every fixture.
var fixtureAnchor = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

const fixtureQuestion = `question_id: meal-peak
kind: descriptive
exposure:
  event_type: meal
counterfactual:
  kind: none
outcome:
  metric: delta_peak
`

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the cgmlens binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "cgmlens-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "cgmlens")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build cgmlens: %v", err))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// writeFixtures writes a triangular meal response: baseline 100 mg/dL, a linear rise to 160
// at minute 30 and a linear fall back to 100 at minute 90.
func writeFixtures(t *testing.T) (seriesPath, eventsPath, questionPath string) {
	t.Helper()
	dir := t.TempDir()

	var samples []string
	for m := -40; m <= 240; m += 5 {
		value := 100.0
		switch {
		case m > 0 && m <= 30:
			value = 100 + float64(m)*2
		case m > 30 && m < 90:
			value = 160 - float64(m-30)
		}
		ts := fixtureAnchor.Add(time.Duration(m) * time.Minute).Format(time.RFC3339)
		samples = append(samples, fmt.Sprintf(`{"timestamp":%q,"glucose_value":%.1f}`, ts, value))
	}
	series := fmt.Sprintf(`{"series_id":"integration","unit":"mg/dL","sampling_interval_minutes":5,"samples":[%s]}`,
		strings.Join(samples, ","))
	events := fmt.Sprintf(`{"events":[{"event_id":"lunch","event_type":"meal","label":"rice","start_time":%q,"annotation_quality":0.9}]}`,
		fixtureAnchor.Format(time.RFC3339))

	seriesPath = filepath.Join(dir, "series.json")
	eventsPath = filepath.Join(dir, "events.json")
	questionPath = filepath.Join(dir, "question.yaml")
	require.NoError(t, os.WriteFile(seriesPath, []byte(series), 0o644))
	require.NoError(t, os.WriteFile(eventsPath, []byte(events), 0o644))
	require.NoError(t, os.WriteFile(questionPath, []byte(fixtureQuestion), 0o644))
	return seriesPath, eventsPath, questionPath
}

// runCommand runs the binary from the project root and returns its standard output.
func runCommand(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = "../" // Run from project root
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Logf("Command failed: %s\nStdout: %s\nStderr: %s", cmd.String(), stdout.String(), stderr.String())
		return stdout.String(), err
	}
	return stdout.String(), nil
}
