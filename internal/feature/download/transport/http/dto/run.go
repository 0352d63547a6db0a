// Package dto はdownloadフィーチャーのHTTPリクエスト/レスポンスDTOを定義します。
package dto

import (
	"time"

	"stock_retriever/internal/feature/download/domain/entity"
)

const dateLayout = "2006-01-02"

// TriggerRunRequest は POST /runs のリクエストボディです。
type TriggerRunRequest struct {
	CSV    string `json:"csv" binding:"required"`
	Column string `json:"col" binding:"required"`
	Delim  string `json:"delim"` // 省略時は "|"
	Prefix string `json:"prefix" binding:"required"`
	Date   string `json:"date"` // YYYY-MM-DD、省略時は当日
}

// ParseDate は Date を解釈します。空の場合はゼロ値を返します。
func (r TriggerRunRequest) ParseDate() (time.Time, error) {
	if r.Date == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, r.Date, time.Local)
}

// TriggerRunResponse は POST /runs のレスポンスです。
type TriggerRunResponse struct {
	RunID string `json:"run_id"`
}

// FailureResponse は失敗した銘柄1件です。
type FailureResponse struct {
	Row    int    `json:"row"`
	Symbol string `json:"symbol"`
	Path   string `json:"path"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RunResponse は実行履歴1件のレスポンスDTOです。
type RunResponse struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	CSV        string            `json:"csv"`
	Column     string            `json:"col"`
	Prefix     string            `json:"prefix"`
	Date       string            `json:"date"`
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Failures   []FailureResponse `json:"failures,omitempty"`
}

// ErrorResponse はエラー時の共通レスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewRunResponse はエンティティをレスポンスDTOに変換します。
func NewRunResponse(r entity.Run) RunResponse {
	out := RunResponse{
		ID:         r.ID,
		Status:     string(r.Status),
		CSV:        r.CSVPath,
		Column:     r.Column,
		Prefix:     r.Prefix,
		Date:       r.Date.Format(dateLayout),
		Total:      r.Total,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.Error,
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, FailureResponse{
			Row:    f.Row,
			Symbol: f.Symbol,
			Path:   f.Path,
			Status: string(f.Status),
			Error:  f.Error,
		})
	}
	return out
}
