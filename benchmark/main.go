// Package main provides a performance benchmarking tool for the cgmlens CLI.
// It generates synthetic CGM datasets of increasing length, runs each command several times,
// treating the first successful cached run as cold and averaging the rest as warm,
// and writes CSV output for performance analysis and documentation.
//
// Prerequisites:
// - cgmlens binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where datasets and the benchmark cache are written
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Datasets    map[string]int // name -> days of data
	Order       []string
}

// dataset is the set of input files for one synthetic subject.
type dataset struct {
	seriesPath   string
	eventsPath   string
	questionPath string
}

const benchmarkQuestion = `question_id: rice-vs-pasta
kind: comparative
exposure:
  event_type: meal
  selector:
    component: label
    operator: "="
    value: rice bowl
counterfactual:
  kind: comparison_events
  comparison:
    event_type: meal
    selector:
      component: label
      operator: "="
      value: pasta
outcome:
  metric: iAUC
`

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     8,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Datasets:    map[string]int{"day": 1, "fortnight": 14, "quarter": 90},
		Order:       []string{"day", "fortnight", "quarter"},
	}

	if _, err := exec.LookPath("cgmlens"); err != nil {
		fmt.Printf("Prerequisites check failed: cgmlens binary not found in PATH\n")
		os.Exit(1)
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// generateDataset writes a 5-minute series with three meals a day alternating rice and pasta.
func generateDataset(dir, name string, days int) (dataset, error) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	type rawSample struct {
		Timestamp string  `json:"timestamp"`
		Value     float64 `json:"glucose_value"`
	}
	type rawEvent struct {
		EventID   string  `json:"event_id"`
		EventType string  `json:"event_type"`
		Label     string  `json:"label"`
		StartTime string  `json:"start_time"`
		Quality   float64 `json:"annotation_quality"`
	}

	var meals []time.Time
	var events []rawEvent
	for d := range days {
		for i, hour := range []int{8, 13, 19} {
			at := start.Add(time.Duration(d*24+hour) * time.Hour)
			meals = append(meals, at)
			label := "rice bowl"
			if (d+i)%2 == 1 {
				label = "pasta"
			}
			events = append(events, rawEvent{
				EventID:   fmt.Sprintf("m%d-%d", d, i),
				EventType: "meal",
				Label:     label,
				StartTime: at.Format(time.RFC3339),
				Quality:   0.9,
			})
		}
	}

	total := days * 24 * 12
	samples := make([]rawSample, total)
	for i := range total {
		ts := start.Add(time.Duration(i*5) * time.Minute)
		value := 95 + 4*math.Sin(float64(i)/20)
		for _, m := range meals {
			since := ts.Sub(m).Minutes()
			if since >= 0 && since < 180 {
				value += 60 * math.Exp(-math.Pow(since-45, 2)/800)
			}
		}
		samples[i] = rawSample{Timestamp: ts.Format(time.RFC3339), Value: math.Round(value*10) / 10}
	}

	ds := dataset{
		seriesPath:   filepath.Join(dir, name+".series.json"),
		eventsPath:   filepath.Join(dir, name+".events.json"),
		questionPath: filepath.Join(dir, "question.yaml"),
	}
	seriesData, err := json.Marshal(map[string]any{"series_id": name, "unit": "mg/dL", "sampling_interval_minutes": 5, "samples": samples})
	if err != nil {
		return ds, err
	}
	eventsData, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return ds, err
	}
	if err := os.WriteFile(ds.seriesPath, seriesData, 0o644); err != nil {
		return ds, err
	}
	if err := os.WriteFile(ds.eventsPath, eventsData, 0o644); err != nil {
		return ds, err
	}
	return ds, os.WriteFile(ds.questionPath, []byte(benchmarkQuestion), 0o644)
}

// runBenchmarks executes all benchmark tests across configured datasets
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Order), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, name := range config.Order {
		days := config.Datasets[name]
		ds, err := generateDataset(config.WorkDir, name, days)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", name, err)
			continue
		}
		fmt.Printf("Benchmarking %s (%d days)\n", name, days)

		results = append(results,
			runBenchmarkSuite(config, name, "quality", "--series", ds.seriesPath),
			runBenchmarkSuite(config, name, "metrics", "--series", ds.seriesPath, "--events", ds.eventsPath),
			runBenchmarkSuite(config, name, "evaluate", "--series", ds.seriesPath, "--events", ds.eventsPath, "--question", ds.questionPath),
		)
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, name, command string, extraArgs ...string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, name)
	cachePath := filepath.Join(config.WorkDir, "benchmark_cache.db")
	_ = os.Remove(cachePath)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		args := append([]string{command, "--cache-backend", cacheBackend, "--workers", fmt.Sprint(config.Workers)}, extraArgs...)
		if cacheBackend == "sqlite" {
			args = append(args, "--cache-db-connect", cachePath)
		}
		cold, times := runBenchmark(config, args, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     name,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a cgmlens command multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, args []string, numRuns int) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("cgmlens", args...)
		cmd.Env = append(os.Environ(), "CGMLENS_HISTORY_BACKEND=none")

		done := make(chan bool, 1)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	return strings.Contains(strings.ToLower(string(output)), "completed in")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/cgmlens_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "quality", "Signal Quality:")
	printCommandSummary(results, "metrics", "Event Metrics:")
	printCommandSummary(results, "evaluate", "Question Evaluation:")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-10s: No-cache: %s, Cold: %s, Warm: %s\n", result.Dataset, result.NoCacheTime, result.ColdTime, result.WarmTime)
		}
	}
}
