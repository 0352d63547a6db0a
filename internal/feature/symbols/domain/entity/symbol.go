// Package entity defines the domain models for the symbols feature.
package entity

// Symbol is one ticker read from a row of the symbol table.
// Duplicates are kept; every row becomes its own download.
type Symbol struct {
	Code string // Ticker as it appears in the table (e.g., "AAPL", "7203.T")
	Row  int    // 1-based data row number, header excluded
}
