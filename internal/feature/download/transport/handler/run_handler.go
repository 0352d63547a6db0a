// Package handler はdownloadフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/domain/entity"
	"stock_retriever/internal/feature/download/transport/http/dto"
	"stock_retriever/internal/feature/download/usecase"
	symboladapters "stock_retriever/internal/feature/symbols/adapters"
	jwtmw "stock_retriever/internal/platform/jwt"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// RunsUsecase は実行履歴とバッチ起動のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type RunsUsecase interface {
	Open(ctx context.Context, req usecase.RetrieveRequest) (*usecase.Job, error)
	Execute(ctx context.Context, job *usecase.Job) (*entity.Run, error)
	FindRun(ctx context.Context, id string) (*entity.Run, error)
	ListRuns(ctx context.Context, limit int) ([]entity.Run, error)
}

// RunHandler は /runs のHTTPリクエストを処理します。
type RunHandler struct {
	uc   RunsUsecase
	base context.Context // バックグラウンド実行の親コンテキスト（サーバー停止でキャンセル）
	wg   sync.WaitGroup
}

// NewRunHandler は新しい RunHandler を生成します。
func NewRunHandler(base context.Context, uc RunsUsecase) *RunHandler {
	return &RunHandler{uc: uc, base: base}
}

// ListRuns は新しい順に実行履歴を返します。
//
// エンドポイント例:
// GET /runs?limit=20
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be a positive integer"})
		return
	}
	limit = min(limit, maxListLimit)

	runs, err := h.uc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to list runs"})
		return
	}

	out := make([]dto.RunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, dto.NewRunResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// GetRun はIDで実行履歴を1件返します。
//
// エンドポイント例:
// GET /runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.uc.FindRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		slog.Error("failed to find run", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to find run"})
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(*run))
}

// TriggerRun は入力を検証してシンボルファイルを開き、バッチをバックグラウンドで開始します。
// 検証とファイルオープンは同期的に行い、失敗した場合は400を返します。
//
// エンドポイント例:
// POST /runs {"csv":"/data/symbols.csv","col":"Symbol","prefix":"/data/prices"}
func (h *RunHandler) TriggerRun(c *gin.Context) {
	var req dto.TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	delim, err := symboladapters.ParseDelimiter(req.Delim)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	date, err := req.ParseDate()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}

	job, err := h.uc.Open(c.Request.Context(), usecase.RetrieveRequest{
		CSVPath:   req.CSV,
		Column:    req.Column,
		Delimiter: delim,
		Prefix:    req.Prefix,
		Date:      date,
	})
	if err != nil {
		if domain.IsConfigurationError(err) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("failed to open run", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to start run"})
		return
	}

	slog.Info("run triggered", "run_id", job.Run.ID, "subject", c.GetString(jwtmw.ContextSubject))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if _, err := h.uc.Execute(h.base, job); err != nil {
			slog.Warn("run aborted", "run_id", job.Run.ID, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, dto.TriggerRunResponse{RunID: job.Run.ID})
}

// Wait はバックグラウンドで実行中のバッチがすべて終了するまで待ちます。
func (h *RunHandler) Wait() {
	h.wg.Wait()
}
