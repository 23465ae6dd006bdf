package memory

import (
	"context"
	"fmt"

	"github.com/jimdaga/aether/internal/models"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the gorm-backed memory table. Every query is scoped by username.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a Repository on top of an open connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create appends a memory row.
func (r *Repository) Create(ctx context.Context, m *models.Memory) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create memory: %w", err)
	}
	return nil
}

// ListByUsername returns the user's memories, newest first.
func (r *Repository) ListByUsername(ctx context.Context, username string) ([]models.Memory, error) {
	var memories []models.Memory
	err := r.db.WithContext(ctx).
		Omit("embedding").
		Where("username = ?", username).
		Order("created_at DESC").
		Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	return memories, nil
}

// Nearest returns the k memories closest to embedding by cosine distance.
func (r *Repository) Nearest(ctx context.Context, username string, embedding []float32, k int) ([]models.Memory, error) {
	var memories []models.Memory
	err := r.db.WithContext(ctx).
		Omit("embedding").
		Where("username = ?", username).
		Where("embedding IS NOT NULL").
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{pgvector.NewVector(embedding)}},
		}).
		Limit(k).
		Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	return memories, nil
}

// CountByUsername returns how many memories the user has.
func (r *Repository) CountByUsername(ctx context.Context, username string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Memory{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count memories: %w", err)
	}
	return count, nil
}
