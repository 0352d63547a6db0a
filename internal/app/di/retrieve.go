// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"errors"

	"stock_retriever/internal/app/config"
	"stock_retriever/internal/feature/download/usecase"
	symboladapters "stock_retriever/internal/feature/symbols/adapters"
	"stock_retriever/internal/platform/externalapi/chart"
	infrahttp "stock_retriever/internal/platform/http"
	"stock_retriever/internal/platform/storage"
)

// NewFetcher creates a ChartClient with an HTTP client sized for the worker pool.
func NewFetcher(cfg config.Config) *chart.ChartClient {
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout, cfg.Workers)
	return chart.NewChartClient(cfg.Chart(), httpClient)
}

// OpenSymbolTable adapts the delimited-file reader to usecase.SourceOpener.
func OpenSymbolTable(path string, delim rune, column string) (usecase.SymbolTable, error) {
	r, err := symboladapters.OpenSymbolReader(path, delim, column)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Retriever bundles the retrieve usecase with the resources it owns.
type Retriever struct {
	Usecase  *usecase.RetrieveUsecase
	RunStore *RunStore
	sink     storage.Sink
}

// Close releases the sink and the run store.
func (r *Retriever) Close() error {
	return errors.Join(r.sink.Close(), r.RunStore.Close())
}

// NewRetriever wires the fetcher, sink and run store into a RetrieveUsecase.
func NewRetriever(ctx context.Context, cfg config.Config) (*Retriever, error) {
	sink, err := storage.OpenSink(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	runs, err := NewRunStore(ctx, cfg)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	batch := usecase.NewBatchUsecase(NewFetcher(cfg), sink, cfg.Workers)
	return &Retriever{
		Usecase:  usecase.NewRetrieveUsecase(batch, OpenSymbolTable, runs.Repo),
		RunStore: runs,
		sink:     sink,
	}, nil
}
