// Package adapters provides the persistence adapters for the download feature.
package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/domain/entity"
	"stock_retriever/internal/feature/download/usecase"
)

type runGorm struct {
	db *gorm.DB
}

var _ usecase.RunRepository = (*runGorm)(nil)

func NewRunRepository(db *gorm.DB) *runGorm {
	return &runGorm{db: db}
}

// Models returns the tables to migrate for the run history.
func Models() []any {
	return []any{&RunModel{}, &RunFailureModel{}}
}

type RunModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	CSVPath    string    `gorm:"size:1024;not null"`
	ColumnName string    `gorm:"size:255;not null"`
	Prefix     string    `gorm:"size:1024;not null"`
	Date       time.Time `gorm:"not null"`
	Status     string    `gorm:"size:16;not null;index"`
	Total      int       `gorm:"not null;default:0"`
	Succeeded  int       `gorm:"not null;default:0"`
	Failed     int       `gorm:"not null;default:0"`
	StartedAt  time.Time `gorm:"not null;index"`
	FinishedAt *time.Time
	Error      string `gorm:"type:text"`

	Failures []RunFailureModel `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (RunModel) TableName() string {
	return "runs"
}

type RunFailureModel struct {
	ID     uint   `gorm:"primaryKey"`
	RunID  string `gorm:"size:36;not null;index"`
	RowNum int    `gorm:"not null"`
	Symbol string `gorm:"type:text;not null"`
	Path   string `gorm:"type:text;not null"`
	Status string `gorm:"size:16;not null"`
	Error  string `gorm:"type:text"`
}

func (RunFailureModel) TableName() string {
	return "run_failures"
}

func toModel(r *entity.Run) RunModel {
	m := RunModel{
		ID:         r.ID,
		CSVPath:    r.CSVPath,
		ColumnName: r.Column,
		Prefix:     r.Prefix,
		Date:       r.Date,
		Status:     string(r.Status),
		Total:      r.Total,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.Error,
	}
	for _, f := range r.Failures {
		m.Failures = append(m.Failures, RunFailureModel{
			RunID:  r.ID,
			RowNum: f.Row,
			Symbol: f.Symbol,
			Path:   f.Path,
			Status: string(f.Status),
			Error:  f.Error,
		})
	}
	return m
}

func toEntity(m RunModel) entity.Run {
	r := entity.Run{
		ID:         m.ID,
		CSVPath:    m.CSVPath,
		Column:     m.ColumnName,
		Prefix:     m.Prefix,
		Date:       m.Date,
		Status:     entity.RunStatus(m.Status),
		Total:      m.Total,
		Succeeded:  m.Succeeded,
		Failed:     m.Failed,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Error:      m.Error,
	}
	for _, f := range m.Failures {
		r.Failures = append(r.Failures, entity.TaskResult{
			Symbol: f.Symbol,
			Row:    f.RowNum,
			Path:   f.Path,
			Status: entity.TaskStatus(f.Status),
			Error:  f.Error,
		})
	}
	return r
}

// Save upserts the run and replaces its failure rows.
func (r *runGorm) Save(ctx context.Context, run *entity.Run) error {
	m := toModel(run)
	failures := m.Failures
	m.Failures = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&m).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", m.ID).Delete(&RunFailureModel{}).Error; err != nil {
			return err
		}
		if len(failures) == 0 {
			return nil
		}
		return tx.CreateInBatches(&failures, 500).Error
	})
}

func (r *runGorm) FindByID(ctx context.Context, id string) (*entity.Run, error) {
	var m RunModel
	err := r.db.WithContext(ctx).
		Preload("Failures", func(db *gorm.DB) *gorm.DB { return db.Order("row_num ASC") }).
		Where("id = ?", id).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	run := toEntity(m)
	return &run, nil
}

// List returns run summaries, newest first. Failure rows are not loaded.
func (r *runGorm) List(ctx context.Context, limit int) ([]entity.Run, error) {
	var rows []RunModel
	q := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Run, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

// Ping checks the underlying connection.
func (r *runGorm) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
