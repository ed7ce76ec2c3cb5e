package contract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Coverage label constants.
const (
	CompleteValue = "Complete" // Complete value
	HighValue     = "High"     // High value
	PartialValue  = "Partial"  // Partial value
	LowValue      = "Low"      // Low value
)

// Color variables for console output.
var (
	CompleteColor = color.New(color.FgGreen, color.Bold) // CompleteColor marks a fully migrated source.
	HighColor     = color.New(color.FgCyan)              // HighColor marks mostly migrated sources.
	PartialColor  = color.New(color.FgYellow)            // PartialColor marks sources still half raw.
	LowColor      = color.New(color.FgRed)               // LowColor marks sources served mostly from raw.
)

// GetPlainLabel returns a plain text label for a coverage percentage.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(percent float64) string {
	switch {
	case percent >= 100:
		return CompleteValue
	case percent >= 75:
		return HighValue
	case percent >= 25:
		return PartialValue
	default:
		return LowValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(percent float64) string {
	text := GetPlainLabel(percent)

	switch text {
	case CompleteValue:
		return CompleteColor.Sprint(text)
	case HighValue:
		return HighColor.Sprint(text)
	case PartialValue:
		return PartialColor.Sprint(text)
	default:
		return LowColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// warnOutput receives LogWarn messages.
var warnOutput io.Writer = os.Stderr

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(warnOutput, "Warning %s: %v\n", msg, err)
}

// GetDBFilePath returns the path to the SQLite DB file for tracker storage.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".autoindex.db"
	}
	return filepath.Join(homeDir, ".autoindex.db")
}

// GetBoltFilePath returns the path to the bbolt file for tracker storage.
func GetBoltFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".autoindex.bolt"
	}
	return filepath.Join(homeDir, ".autoindex.bolt")
}

// TruncateText shortens s to maxWidth runes with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and one character.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
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
