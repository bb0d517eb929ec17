// Package fonts locates TrueType fonts for the rendered outputs.
package fonts

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned when a configured font file does not exist.
var ErrNotFound = errors.New("font not found")

// Candidates are TrueType fonts with broad Unicode coverage, tried in order when no font is configured.
var Candidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
	`C:\Windows\Fonts\arial.ttf`,
}

// Resolve returns configured if it exists, or ErrNotFound if it does not.
// With nothing configured it returns the first installed candidate, or "" when none is installed.
func Resolve(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrNotFound, configured, err)
		}
		return configured, nil
	}
	for _, c := range Candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}
