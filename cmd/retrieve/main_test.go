package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtmw "stock_retriever/internal/platform/jwt"
)

func priceServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") == "FAIL" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("Date,Close\n2024-03-14,1.0\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeSymbols(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "symbols.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_ExitCodes(t *testing.T) {
	srv := priceServer(t)
	tmpl := srv.URL + "/?s={symbol}&d={month}&e={day}&f={year}"

	tests := []struct {
		name         string
		content      string
		extraArgs    []string
		omitCSV      bool
		expectedCode int
		expectedErr  string
	}{
		{name: "all succeed", content: "Symbol|Name\nAAPL|Apple\nIBM|IBM\n", expectedCode: exitOK},
		{name: "one fails", content: "Symbol|Name\nAAPL|Apple\nFAIL|x\n", expectedCode: exitFailure, expectedErr: "1 of 2 symbols failed"},
		{name: "missing column", content: "Ticker|Name\nAAPL|Apple\n", expectedCode: exitConfig, expectedErr: "column not found"},
		{name: "missing csv flag", omitCSV: true, expectedCode: exitConfig, expectedErr: "configuration: csv"},
		{name: "bad delimiter", content: "Symbol|Name\n", extraArgs: []string{"--delim", "ab"}, expectedCode: exitConfig},
		{name: "bad date", content: "Symbol|Name\n", extraArgs: []string{"--date", "yesterday"}, expectedCode: exitConfig},
		{name: "unknown flag", content: "Symbol|Name\n", extraArgs: []string{"--nope"}, expectedCode: exitConfig},
		{name: "malformed row", content: "Symbol|Name\nAAPL|Apple\nBROKEN\n", expectedCode: exitFailure, expectedErr: "batch aborted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			args := []string{"--col", "Symbol", "--prefix", filepath.Join(dir, "prices"), "--url-template", tmpl, "--date", "2024-03-15", "--workers", "2"}
			if !tt.omitCSV {
				args = append(args, "--csv", writeSymbols(t, dir, tt.content))
			}
			args = append(args, tt.extraArgs...)

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), args, &stdout, &stderr)

			assert.Equal(t, tt.expectedCode, code, stderr.String())
			if tt.expectedErr != "" {
				assert.Contains(t, stderr.String(), tt.expectedErr)
			}
		})
	}
}

// 必須フラグの欠落は履歴DBへの接続より先に検出されること。
func TestRun_MissingInputsSkipStoreConnect(t *testing.T) {
	args := []string{
		"--col", "Symbol", "--prefix", filepath.Join(t.TempDir(), "prices"),
		"--db-driver", "postgres",
		"--database-url", "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable connect_timeout=1",
		"--db-connect-timeout", "1m",
	}

	var stdout, stderr bytes.Buffer
	start := time.Now()
	code := run(context.Background(), args, &stdout, &stderr)

	assert.Equal(t, exitConfig, code, stderr.String())
	assert.Contains(t, stderr.String(), "configuration: csv")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRun_SummaryAndFiles(t *testing.T) {
	srv := priceServer(t)
	dir := t.TempDir()
	prefix := filepath.Join(dir, "prices")

	args := []string{
		"--csv", writeSymbols(t, dir, "Name,Symbol\nApple,AAPL\nBroken,FAIL\nApple,AAPL\n"),
		"--col", "Symbol", "--delim", ",", "--prefix", prefix, "--date", "2024-03-15",
		"--url-template", srv.URL + "/?s={symbol}",
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "retrieved 2/3 symbols, 1 failed")
	assert.Contains(t, stderr.String(), "row 2 FAIL")
	assert.FileExists(t, prefix+"_3.15.2024_AAPL")
	assert.NoFileExists(t, prefix+"_3.15.2024_FAIL")
}

func TestRun_EnvConfiguration(t *testing.T) {
	srv := priceServer(t)
	dir := t.TempDir()

	t.Setenv("RETRIEVER_CSV", writeSymbols(t, dir, "Symbol\nIBM\n"))
	t.Setenv("RETRIEVER_COL", "Symbol")
	t.Setenv("RETRIEVER_PREFIX", filepath.Join(dir, "env"))
	t.Setenv("RETRIEVER_URL_TEMPLATE", srv.URL+"/?s={symbol}")
	t.Setenv("RETRIEVER_DATE", "2025-01-02")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)

	assert.Equal(t, exitOK, code, stderr.String())
	assert.FileExists(t, filepath.Join(dir, "env_1.2.2025_IBM"))
}

func TestRun_Token(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"token", "--jwt-secret", "s3cret", "--subject", "cron", "--ttl", "1h"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var claims jwtmw.Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(stdout.String()), &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cron", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestRun_TokenWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("RETRIEVER_JWT_SECRET", "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"token"}, &stdout, &stderr)
	assert.Equal(t, exitConfig, code)
	assert.Empty(t, stdout.String())
}
