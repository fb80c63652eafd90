// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

var printer = message.NewPrinter(language.English)

// FormatNumber formats large numbers with comma separators.
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats a float with comma separators and fixed decimals.
func FormatFloat(v float64, decimals int) string {
	return printer.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}

// FormatCost formats a dollar amount.
func FormatCost(cost float64) string {
	return "$" + FormatFloat(cost, 2)
}

// FormatCount formats an int with comma separators.
func FormatCount(n int) string {
	return FormatNumber(int64(n))
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return fmt.Sprintf("%s...", string(r[:n-3]))
}

// prefix returns the first n bytes of an ASCII identifier.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
