package adapters

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/symbols/domain/entity"
)

// writeTable はテスト用の区切りファイルを一時ディレクトリに作成します。
func writeTable(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "symbols.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func codes(symbols []entity.Symbol) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, s.Code)
	}
	return out
}

func TestOpenSymbolReader_ReadsColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		delim    rune
		column   string
		expected []string
	}{
		{
			name:     "pipe delimiter",
			content:  "Symbol|Name\nAAPL|Apple\nMSFT|Microsoft\n",
			delim:    '|',
			column:   "Symbol",
			expected: []string{"AAPL", "MSFT"},
		},
		{
			name:     "comma delimiter, column not first",
			content:  "Name,Ticker\nApple,AAPL\nAlphabet,GOOG\n",
			delim:    ',',
			column:   "Ticker",
			expected: []string{"AAPL", "GOOG"},
		},
		{
			name:     "duplicates are kept",
			content:  "Symbol|Name\nAAPL|Apple\nAAPL|Apple again\nIBM|IBM\n",
			delim:    '|',
			column:   "Symbol",
			expected: []string{"AAPL", "AAPL", "IBM"},
		},
		{
			name:     "surrounding whitespace trimmed, empty cell kept",
			content:  "Symbol|Name\n AAPL |Apple\n|Unknown\n",
			delim:    '|',
			column:   "Symbol",
			expected: []string{"AAPL", ""},
		},
		{
			name:     "byte order mark on first header",
			content:  "\ufeffSymbol;Name\nSAP;SAP SE\n",
			delim:    ';',
			column:   "Symbol",
			expected: []string{"SAP"},
		},
		{
			name:     "stray quotes in another column",
			content:  "Symbol|Security Name\nAAPL|Apple Inc.\nXYZ|Acme \"Class A\" Shares\nMSFT|Microsoft\n",
			delim:    '|',
			column:   "Symbol",
			expected: []string{"AAPL", "XYZ", "MSFT"},
		},
		{
			name:     "quoted field containing the delimiter",
			content:  "Symbol|Security Name\nBRK|\"Berkshire | Class B\"\nIBM|IBM\n",
			delim:    '|',
			column:   "Symbol",
			expected: []string{"BRK", "IBM"},
		},
		{
			name:     "header only",
			content:  "Symbol|Name\n",
			delim:    '|',
			column:   "Symbol",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := OpenSymbolReader(writeTable(t, tt.content), tt.delim, tt.column)
			require.NoError(t, err)
			defer r.Close()

			got, err := r.ReadAll()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, codes(got))
		})
	}
}

func TestSymbolReader_RowNumbers(t *testing.T) {
	t.Parallel()

	r, err := OpenSymbolReader(writeTable(t, "Symbol\nA\nB\nC\n"), '|', "Symbol")
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, i+1, s.Row)
	}

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenSymbolReader_MissingColumn(t *testing.T) {
	t.Parallel()

	_, err := OpenSymbolReader(writeTable(t, "Symbol|Name\nAAPL|Apple\n"), '|', "Ticker")
	require.Error(t, err)

	var ce *domain.ConfigurationError
	require.True(t, errors.As(err, &ce), "expected ConfigurationError, got %T", err)
	assert.Equal(t, "col", ce.Field)
	assert.ErrorIs(t, err, domain.ErrColumnNotFound)
}

func TestOpenSymbolReader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := OpenSymbolReader(filepath.Join(t.TempDir(), "nope.csv"), '|', "Symbol")
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenSymbolReader_EmptyFile(t *testing.T) {
	t.Parallel()

	_, err := OpenSymbolReader(writeTable(t, ""), '|', "Symbol")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyHeader)
}

func TestOpenSymbolReader_InvalidDelimiter(t *testing.T) {
	t.Parallel()

	for _, d := range []rune{'"', '\n', '\r', 0} {
		_, err := OpenSymbolReader(writeTable(t, "Symbol\nA\n"), d, "Symbol")
		require.Error(t, err)

		var ce *domain.ConfigurationError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "delim", ce.Field)
	}
}

// TestSymbolReader_MalformedRow は列数の異なる行でパースエラーが返り、それ以前の行は読めることを検証します。
func TestSymbolReader_MalformedRow(t *testing.T) {
	t.Parallel()

	r, err := OpenSymbolReader(writeTable(t, "Symbol|Name\nAAPL|Apple\nBROKEN\nMSFT|Microsoft\n"), '|', "Symbol")
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, csv.ErrFieldCount)
	assert.Equal(t, []string{"AAPL"}, codes(got))
}

func TestParseDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{in: "", want: '|'},
		{in: "|", want: '|'},
		{in: ",", want: ','},
		{in: "\t", want: '\t'},
		{in: "§", want: '§'},
		{in: ",,", wantErr: true},
		{in: "\"", wantErr: true},
		{in: "\n", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			assert.True(t, domain.IsConfigurationError(err))
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
