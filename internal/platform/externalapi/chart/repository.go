package chart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/usecase"
)

// ChartClient はURLテンプレートで指定された外部エンドポイントから日次株価データを取得するFetcher実装です。
// レスポンスボディは解析せず、そのまま返します。
type ChartClient struct {
	cfg    Config
	client *http.Client
}

// ChartClientがFetcherを実装していることをコンパイル時に検証します。
var _ usecase.Fetcher = (*ChartClient)(nil)

// NewChartClient は指定された設定とHTTPクライアントでChartClientの新しいインスタンスを生成します。
func NewChartClient(cfg Config, client *http.Client) *ChartClient {
	return &ChartClient{cfg: cfg, client: client}
}

// BuildURL fills the URL template for symbol and date.
// Month and day are two-digit and zero-padded; with LegacyDateOffset both are reduced by one.
func (c *ChartClient) BuildURL(symbol string, date time.Time) string {
	month, day := int(date.Month()), date.Day()
	if c.cfg.LegacyDateOffset {
		month--
		day--
	}
	return strings.NewReplacer(
		"{symbol}", url.QueryEscape(symbol),
		"{month}", fmt.Sprintf("%02d", month),
		"{day}", fmt.Sprintf("%02d", day),
		"{year}", strconv.Itoa(date.Year()),
	).Replace(c.cfg.URLTemplate)
}

// Fetch はsymbolとdateのデータを取得し、レスポンスボディをそのまま返します。
// 2xx以外のステータスや通信エラーは FetchError として返します。
func (c *ChartClient) Fetch(ctx context.Context, symbol string, date time.Time) ([]byte, error) {
	u := c.BuildURL(symbol, date)

	// リクエストオブジェクトを作成
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.FetchError{Symbol: symbol, URL: u, Err: err}
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	// リクエストを実行
	res, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Symbol: symbol, URL: u, Err: err}
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// Drain so the connection can be reused by the next task.
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &domain.FetchError{
			Symbol:     symbol,
			URL:        u,
			StatusCode: res.StatusCode,
			Err:        domain.ErrUnexpectedStatus,
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &domain.FetchError{Symbol: symbol, URL: u, StatusCode: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
