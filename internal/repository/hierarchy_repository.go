package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"learnhub/internal/domain"
	"learnhub/internal/repository/models"
	"learnhub/internal/util"

	"github.com/jmoiron/sqlx"
)

// sqlxHierarchyRepository implements domain.HierarchyRepository using sqlx.
type sqlxHierarchyRepository struct {
	db *sqlx.DB
}

// NewSQLXHierarchyRepository creates a new instance of sqlxHierarchyRepository.
func NewSQLXHierarchyRepository(db *sqlx.DB) domain.HierarchyRepository {
	return &sqlxHierarchyRepository{db: db}
}

func toDomainHierarchyNode(m *models.HierarchyNode) *domain.HierarchyNode {
	if m == nil {
		return nil
	}
	return &domain.HierarchyNode{
		ID:               m.ID,
		CourseID:         m.CourseID,
		ParentID:         m.ParentID.String,
		Kind:             domain.NodeKind(m.Kind),
		Title:            m.Title,
		OrderKey:         m.OrderKey,
		IsVisible:        m.IsVisible,
		IsDeleted:        m.IsDeleted,
		RequiresPrevious: m.RequiresPrevious,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func (r *sqlxHierarchyRepository) GetNode(ctx context.Context, id string) (*domain.HierarchyNode, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.HierarchyNode
	query := `SELECT * FROM hierarchy_nodes WHERE id = $1`
	if err := exec.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get hierarchy node: %w", err)
	}
	return toDomainHierarchyNode(&m), nil
}

func (r *sqlxHierarchyRepository) GetChildren(ctx context.Context, courseID, parentID string, kind domain.NodeKind) ([]*domain.HierarchyNode, error) {
	exec := GetExecutor(ctx, r.db)

	var ms []models.HierarchyNode
	query := `SELECT * FROM hierarchy_nodes
	          WHERE course_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND kind = $3
	          ORDER BY order_key`
	if err := exec.SelectContext(ctx, &ms, query, courseID, util.StringToNullString(parentID), string(kind)); err != nil {
		return nil, fmt.Errorf("failed to get hierarchy children: %w", err)
	}

	nodes := make([]*domain.HierarchyNode, len(ms))
	for i := range ms {
		nodes[i] = toDomainHierarchyNode(&ms[i])
	}
	return nodes, nil
}
