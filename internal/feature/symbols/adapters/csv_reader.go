// Package adapters provides the symbol table reader for the symbols feature.
package adapters

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/symbols/domain/entity"
)

// DefaultDelimiter is used when no delimiter is configured.
const DefaultDelimiter = '|'

var errInvalidDelimiter = errors.New("delimiter must be a single character other than quote, CR or LF")

// SymbolReader streams the symbol column of a delimited table, one row at a time.
// It is not restartable; open a new reader to read the file again.
type SymbolReader struct {
	f   *os.File
	r   *csv.Reader
	col int
	row int
}

// OpenSymbolReader opens path, reads its header row and locates column.
// Rows whose field count differs from the header make Next return a *csv.ParseError.
func OpenSymbolReader(path string, delim rune, column string) (*SymbolReader, error) {
	if !validDelimiter(delim) {
		return nil, &domain.ConfigurationError{Field: "delim", Err: errInvalidDelimiter}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "csv", Err: err}
	}

	r := csv.NewReader(f)
	r.Comma = delim
	r.ReuseRecord = true
	// Listings carry names like `Acme "Class A" Shares`; only the field count is enforced.
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return nil, &domain.ConfigurationError{Field: "csv", Err: domain.ErrEmptyHeader}
		}
		return nil, &domain.ConfigurationError{Field: "csv", Err: fmt.Errorf("read header: %w", err)}
	}

	idx := columnIndex(header, column)
	if idx < 0 {
		_ = f.Close()
		return nil, &domain.ConfigurationError{
			Field: "col",
			Err:   fmt.Errorf("%w: %q", domain.ErrColumnNotFound, column),
		}
	}

	return &SymbolReader{f: f, r: r, col: idx}, nil
}

// Next returns the symbol of the next data row, or io.EOF once the table is exhausted.
func (s *SymbolReader) Next() (entity.Symbol, error) {
	rec, err := s.r.Read()
	if err != nil {
		return entity.Symbol{}, err
	}
	s.row++
	return entity.Symbol{Code: strings.TrimSpace(rec[s.col]), Row: s.row}, nil
}

// Close releases the underlying file.
func (s *SymbolReader) Close() error {
	return s.f.Close()
}

// ReadAll drains the reader and returns every remaining symbol.
func (s *SymbolReader) ReadAll() ([]entity.Symbol, error) {
	var out []entity.Symbol
	for {
		sym, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, sym)
	}
}

// ParseDelimiter converts a flag value into a delimiter rune.
// An empty value selects DefaultDelimiter.
func ParseDelimiter(s string) (rune, error) {
	if s == "" {
		return DefaultDelimiter, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || !validDelimiter(r) {
		return 0, &domain.ConfigurationError{Field: "delim", Err: errInvalidDelimiter}
	}
	return r, nil
}

func columnIndex(header []string, column string) int {
	for i, h := range header {
		if i == 0 {
			// Spreadsheet exports often start with a UTF-8 BOM.
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if strings.TrimSpace(h) == column {
			return i
		}
	}
	return -1
}

func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}
