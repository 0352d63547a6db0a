package adapters

import (
	"context"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/domain/entity"
	"stock_retriever/internal/feature/download/usecase"
)

// NopRunRepository discards runs. It is used when no run store is configured.
type NopRunRepository struct{}

var _ usecase.RunRepository = NopRunRepository{}

func (NopRunRepository) Save(context.Context, *entity.Run) error { return nil }

func (NopRunRepository) FindByID(context.Context, string) (*entity.Run, error) {
	return nil, domain.ErrRunNotFound
}

func (NopRunRepository) List(context.Context, int) ([]entity.Run, error) {
	return []entity.Run{}, nil
}
