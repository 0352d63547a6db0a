// Package usecase はシンボル一覧から日次株価データを一括取得するビジネスロジックを実装します。
package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/domain/entity"
	symbolentity "stock_retriever/internal/feature/symbols/domain/entity"
)

// DefaultWorkers は同時に実行するダウンロードタスク数のデフォルト上限です。
const DefaultWorkers = 100

// Fetcher は1銘柄分の生データを外部ソースから取得するインターフェースです。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, date time.Time) ([]byte, error)
}

// Sink は取得したデータをパスに書き込むインターフェースです。既存のデータは上書きされます。
type Sink interface {
	Write(ctx context.Context, path string, data []byte) error
}

// SymbolSource は銘柄を1件ずつ返し、終端で io.EOF を返します。
type SymbolSource interface {
	Next() (symbolentity.Symbol, error)
}

// BatchUsecase は固定数のワーカーで銘柄ごとの取得と書き込みを並行実行します。
type BatchUsecase struct {
	fetcher Fetcher
	sink    Sink
	workers int
}

// NewBatchUsecase は新しい BatchUsecase を作成します。workers が0以下の場合は DefaultWorkers を使用します。
func NewBatchUsecase(fetcher Fetcher, sink Sink, workers int) *BatchUsecase {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &BatchUsecase{fetcher: fetcher, sink: sink, workers: workers}
}

// Download は src の各行につき1タスクを投入し、すべてのタスクの完了を待ってからレポートを返します。
//
// 1銘柄の失敗は他の銘柄の処理を止めません。src の読み込みエラーやコンテキストのキャンセルは
// 以降の投入を止めますが、投入済みのタスクは最後まで実行され、レポートとともにエラーが返ります。
func (bu *BatchUsecase) Download(ctx context.Context, src SymbolSource, date time.Time, prefix string) (*entity.BatchReport, error) {
	rep := &entity.BatchReport{Date: date, Prefix: prefix, StartedAt: time.Now()}
	tasks := make(chan entity.DownloadTask, bu.workers)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for i := 0; i < bu.workers; i++ {
		g.Go(func() error {
			for task := range tasks {
				res := bu.runTask(ctx, task)
				mu.Lock()
				rep.Record(res)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(tasks)
		return dispatch(ctx, src, date, prefix, tasks)
	})

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	rep.FinishedAt = time.Now()
	slices.SortFunc(rep.Failures, func(a, b entity.TaskResult) int { return cmp.Compare(a.Row, b.Row) })
	return rep, err
}

// dispatch は src を最後まで読み、1行につき1タスクを投入します。
func dispatch(ctx context.Context, src SymbolSource, date time.Time, prefix string, tasks chan<- entity.DownloadTask) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sym, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read symbols: %w", err)
		}

		task := entity.DownloadTask{Symbol: sym.Code, Row: sym.Row, Date: date, Prefix: prefix}
		select {
		case tasks <- task:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runTask は1タスク分の取得と書き込みを行います。取得に失敗した場合は何も書き込みません。
func (bu *BatchUsecase) runTask(ctx context.Context, task entity.DownloadTask) entity.TaskResult {
	path := OutputPath(task.Prefix, task.Date, task.Symbol)
	res := entity.TaskResult{Symbol: task.Symbol, Row: task.Row, Path: path}

	body, err := bu.fetch(ctx, task)
	if err != nil {
		slog.Error("failed to fetch symbol", "symbol", task.Symbol, "row", task.Row, "error", err)
		res.Status = entity.TaskFetchFailed
		res.Error = err.Error()
		return res
	}

	if err := bu.sink.Write(ctx, path, body); err != nil {
		werr := &domain.WriteError{Symbol: task.Symbol, Path: path, Err: err}
		slog.Error("failed to write symbol", "symbol", task.Symbol, "path", path, "error", err)
		res.Status = entity.TaskWriteFailed
		res.Error = werr.Error()
		return res
	}

	slog.Debug("symbol retrieved", "symbol", task.Symbol, "path", path, "bytes", len(body))
	res.Status = entity.TaskSucceeded
	res.Bytes = len(body)
	return res
}

func (bu *BatchUsecase) fetch(ctx context.Context, task entity.DownloadTask) ([]byte, error) {
	// Tasks still queued after cancellation fail without touching the network.
	if err := ctx.Err(); err != nil {
		return nil, &domain.FetchError{Symbol: task.Symbol, Err: err}
	}
	body, err := bu.fetcher.Fetch(ctx, task.Symbol, task.Date)
	if err != nil {
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			err = &domain.FetchError{Symbol: task.Symbol, Err: err}
		}
		return nil, err
	}
	return body, nil
}
