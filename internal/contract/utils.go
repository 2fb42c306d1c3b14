package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/cgmlens/schema"
)

// Confidence label constants.
const (
	StrongValue   = "Strong"   // Strong evidence
	GoodValue     = "Good"     // Good evidence
	ModerateValue = "Moderate" // Moderate evidence
	WeakValue     = "Weak"     // Weak evidence
)

// Color variables for console output.
var (
	DangerColor  = color.New(color.FgRed, color.Bold) // DangerColor marks unanswerable and red results.
	WarnColor    = color.New(color.FgYellow)          // WarnColor marks partial and yellow results.
	OkColor      = color.New(color.FgGreen)           // OkColor marks answerable and green results.
	NeutralColor = color.New(color.FgCyan)            // NeutralColor marks unknown and gray results.
)

// GetPlainLabel returns a plain text label for a confidence score in [0,1].
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return StrongValue
	case confidence >= 0.6:
		return GoodValue
	case confidence >= 0.4:
		return ModerateValue
	default:
		return WeakValue
	}
}

// GetColorLabel returns a colored confidence label for console output (table).
func GetColorLabel(confidence float64) string {
	text := GetPlainLabel(confidence)

	switch text {
	case StrongValue:
		return OkColor.Sprint(text)
	case GoodValue:
		return NeutralColor.Sprint(text)
	case ModerateValue:
		return WarnColor.Sprint(text)
	default:
		return DangerColor.Sprint(text)
	}
}

// GetStatusLabel returns a verdict status, colored when useColors is set.
func GetStatusLabel(status schema.VerdictStatus, useColors bool) string {
	text := string(status)
	if !useColors {
		return text
	}
	switch status {
	case schema.StatusAnswerable:
		return OkColor.Sprint(text)
	case schema.StatusPartial:
		return WarnColor.Sprint(text)
	case schema.StatusUnanswerable:
		return DangerColor.Sprint(text)
	default:
		return NeutralColor.Sprint(text)
	}
}

// GetSignalLabel returns an event signal status, colored when useColors is set.
func GetSignalLabel(status schema.SignalStatus, useColors bool) string {
	text := string(status)
	if !useColors {
		return text
	}
	switch status {
	case schema.SignalRed:
		return DangerColor.Sprint(text)
	case schema.SignalYellow:
		return WarnColor.Sprint(text)
	case schema.SignalGreen:
		return OkColor.Sprint(text)
	default:
		return NeutralColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".cgmlens_cache.db"
	}
	return filepath.Join(homeDir, ".cgmlens_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for evaluation history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".cgmlens_history.db"
	}
	return filepath.Join(homeDir, ".cgmlens_history.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
