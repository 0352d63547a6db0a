// Package chart provides a client for historical daily price endpoints addressed by a URL template.
package chart

import "time"

// DefaultURLTemplate is the legacy historical chart endpoint.
// Its d/e parameters are a zero-based month and the day minus one, hence LegacyDateOffset.
const DefaultURLTemplate = "http://real-chart.finance.yahoo.com/table.csv?s={symbol}&a=00&b=2&c=1962&d={month}&e={day}&f={year}&g=d&ignore=.csv"

// Config holds configuration for the chart client.
type Config struct {
	URLTemplate      string        // Endpoint with {symbol}, {month}, {day} and {year} placeholders
	LegacyDateOffset bool          // Subtract one from month and day when filling the template
	Timeout          time.Duration // HTTP request timeout
	UserAgent        string        // User-Agent header sent with every request
}

// DefaultConfig returns the configuration for the legacy endpoint.
func DefaultConfig() Config {
	return Config{
		URLTemplate:      DefaultURLTemplate,
		LegacyDateOffset: true,
		Timeout:          30 * time.Second,
		UserAgent:        "stock_retriever/1.0",
	}
}
