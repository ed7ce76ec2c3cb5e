package outwriter

import (
	"os"

	"github.com/huangsam/autoindex/internal/contract"
	"golang.org/x/term"
)

// terminalWidth returns the width override from the config, the detected
// terminal width, or 80.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detected, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detected <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detected
}

// GetMaxCellWidth spreads the terminal width over columns cells, keeping
// each between 8 and 60 characters.
func GetMaxCellWidth(cfg *contract.Config, columns int) int {
	if columns <= 0 {
		columns = 1
	}
	// Borders and padding take about three characters per column
	available := (terminalWidth(cfg) - 3*columns - 1) / columns
	if available < 8 {
		return 8
	}
	if available > 60 {
		return 60
	}
	return available
}
