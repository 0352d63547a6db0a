// Package http provides the outbound HTTP client used by the downloaders.
package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient はチャートAPIへの一括取得用に設定されたHTTPクライアントを作成します。
//
// 全ワーカーが同じホストに接続するため、ホストあたりのアイドル接続数をワーカー数に合わせます。
// 既定の2本のままだとワーカーごとに接続の張り直しが発生します。
//
// 設定:
//   - Proxy: 環境変数（HTTP_PROXYなど）が設定されている場合に使用
//   - MaxIdleConnsPerHost: workers（0以下の場合は http.DefaultMaxIdleConnsPerHost）
//   - Client.Timeout: リクエスト全体のタイムアウト（呼び出し元から渡される）
func NewHTTPClient(timeout time.Duration, workers int) *http.Client {
	perHost := workers
	if perHost <= 0 {
		perHost = http.DefaultMaxIdleConnsPerHost
	}
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          max(100, perHost),
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
