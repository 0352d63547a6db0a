package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/domain/entity"
)

// SymbolTable は読み終えたら閉じる必要のある SymbolSource です。
type SymbolTable interface {
	SymbolSource
	Close() error
}

// SourceOpener は区切りファイルを開き、指定列の SymbolTable を返します。
// 列が見つからない場合などは *domain.ConfigurationError を返す必要があります。
type SourceOpener func(path string, delim rune, column string) (SymbolTable, error)

// RunRepository は実行履歴の永続化を抽象化します。
type RunRepository interface {
	Save(ctx context.Context, run *entity.Run) error
	FindByID(ctx context.Context, id string) (*entity.Run, error)
	List(ctx context.Context, limit int) ([]entity.Run, error)
}

// RetrieveRequest は1回の一括取得の入力です。
type RetrieveRequest struct {
	CSVPath   string
	Column    string
	Delimiter rune
	Prefix    string
	Date      time.Time // ゼロ値の場合は現在のローカル日付
}

// Job は入力検証とファイルオープンを終えた実行待ちのバッチです。
type Job struct {
	Run *entity.Run
	src SymbolTable
}

// RetrieveUsecase は入力の検証、バッチ実行、実行履歴の記録をまとめます。
type RetrieveUsecase struct {
	batch *BatchUsecase
	open  SourceOpener
	runs  RunRepository
	now   func() time.Time
	newID func() string
}

// NewRetrieveUsecase は新しい RetrieveUsecase を作成します。
func NewRetrieveUsecase(batch *BatchUsecase, open SourceOpener, runs RunRepository) *RetrieveUsecase {
	return &RetrieveUsecase{
		batch: batch,
		open:  open,
		runs:  runs,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Open は入力を検証してシンボルファイルを開き、running 状態の実行履歴を保存します。
// ここで返るエラーはすべて *domain.ConfigurationError で、ダウンロードは1件も開始されていません。
func (u *RetrieveUsecase) Open(ctx context.Context, req RetrieveRequest) (*Job, error) {
	switch {
	case req.CSVPath == "":
		return nil, &domain.ConfigurationError{Field: "csv", Err: errors.New("path is required")}
	case req.Column == "":
		return nil, &domain.ConfigurationError{Field: "col", Err: errors.New("column name is required")}
	case req.Prefix == "":
		return nil, &domain.ConfigurationError{Field: "prefix", Err: errors.New("output prefix is required")}
	}

	src, err := u.open(req.CSVPath, req.Delimiter, req.Column)
	if err != nil {
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = u.now()
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)

	run := &entity.Run{
		ID:        u.newID(),
		CSVPath:   req.CSVPath,
		Column:    req.Column,
		Prefix:    req.Prefix,
		Date:      date,
		Status:    entity.RunRunning,
		StartedAt: u.now(),
	}
	u.save(ctx, run)

	return &Job{Run: run, src: src}, nil
}

// Execute はジョブを最後まで実行し、結果を実行履歴に保存します。
// 返るエラーはシンボルファイルの読み込みエラーかキャンセルで、個々の銘柄の失敗は run.Failures に記録されます。
func (u *RetrieveUsecase) Execute(ctx context.Context, job *Job) (*entity.Run, error) {
	defer func() {
		if err := job.src.Close(); err != nil {
			slog.Warn("failed to close symbol table", "run_id", job.Run.ID, "error", err)
		}
	}()

	slog.Info("batch started", "run_id", job.Run.ID, "csv", job.Run.CSVPath, "column", job.Run.Column, "prefix", job.Run.Prefix)

	rep, err := u.batch.Download(ctx, job.src, job.Run.Date, job.Run.Prefix)
	job.Run.Finish(rep, err)

	// 中断された場合でも最終状態は記録する
	u.save(context.WithoutCancel(ctx), job.Run)

	slog.Info("batch finished",
		"run_id", job.Run.ID,
		"status", job.Run.Status,
		"total", job.Run.Total,
		"succeeded", job.Run.Succeeded,
		"failed", job.Run.Failed,
		"elapsed", rep.FinishedAt.Sub(rep.StartedAt),
	)
	return job.Run, err
}

// Retrieve は Open と Execute を続けて行います。
func (u *RetrieveUsecase) Retrieve(ctx context.Context, req RetrieveRequest) (*entity.Run, error) {
	job, err := u.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	return u.Execute(ctx, job)
}

// FindRun は ID で実行履歴を取得します。
func (u *RetrieveUsecase) FindRun(ctx context.Context, id string) (*entity.Run, error) {
	return u.runs.FindByID(ctx, id)
}

// ListRuns は新しい順に最大 limit 件の実行履歴を返します。
func (u *RetrieveUsecase) ListRuns(ctx context.Context, limit int) ([]entity.Run, error) {
	return u.runs.List(ctx, limit)
}

// 履歴の保存失敗はバッチ自体を失敗させない
func (u *RetrieveUsecase) save(ctx context.Context, run *entity.Run) {
	if err := u.runs.Save(ctx, run); err != nil {
		slog.Warn("failed to save run", "run_id", run.ID, "status", run.Status, "error", err)
	}
}
