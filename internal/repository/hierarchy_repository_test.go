package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/repository/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hierarchyColumns() []string {
	return []string{"id", "course_id", "parent_id", "kind", "title", "order_key", "is_visible", "is_deleted", "requires_previous", "created_at", "updated_at"}
}

func TestToDomainHierarchyNode(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	m := &models.HierarchyNode{
		ID:               "node1",
		CourseID:         "course1",
		ParentID:         sql.NullString{String: "level1", Valid: true},
		Kind:             "section",
		Title:            "Basics",
		OrderKey:         2,
		IsVisible:        true,
		RequiresPrevious: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	n := toDomainHierarchyNode(m)
	require.NotNil(t, n)
	assert.Equal(t, "level1", n.ParentID)
	assert.Equal(t, domain.NodeKindSection, n.Kind)
	assert.True(t, n.Reachable())

	m.ParentID = sql.NullString{}
	assert.Empty(t, toDomainHierarchyNode(m).ParentID, "null parent reads as empty")
}

func TestGetNode(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXHierarchyRepository(db)

		now := time.Now()
		rows := sqlmock.NewRows(hierarchyColumns()).
			AddRow("node1", "course1", "level1", "section", "Basics", 1, true, false, true, now, now)
		mock.ExpectQuery(`SELECT \* FROM hierarchy_nodes WHERE id = \$1`).
			WithArgs("node1").
			WillReturnRows(rows)

		n, err := repo.GetNode(ctx, "node1")
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "Basics", n.Title)
	})

	t.Run("missing node reads as nil", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXHierarchyRepository(db)

		mock.ExpectQuery(`SELECT \* FROM hierarchy_nodes`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		n, err := repo.GetNode(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, n)
	})
}

func TestGetChildren(t *testing.T) {
	ctx := context.Background()

	t.Run("sections of a level", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXHierarchyRepository(db)

		now := time.Now()
		rows := sqlmock.NewRows(hierarchyColumns()).
			AddRow("s1", "course1", "level1", "section", "First", 1, true, false, true, now, now).
			AddRow("s2", "course1", "level1", "section", "Second", 2, true, false, true, now, now)
		mock.ExpectQuery(`SELECT \* FROM hierarchy_nodes\s+WHERE course_id = \$1 AND parent_id IS NOT DISTINCT FROM \$2 AND kind = \$3`).
			WithArgs("course1", sql.NullString{String: "level1", Valid: true}, "section").
			WillReturnRows(rows)

		nodes, err := repo.GetChildren(ctx, "course1", "level1", domain.NodeKindSection)
		require.NoError(t, err)
		require.Len(t, nodes, 2)
		assert.Equal(t, "s1", nodes[0].ID)
	})

	t.Run("levels are fetched with a null parent", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXHierarchyRepository(db)

		mock.ExpectQuery(`SELECT \* FROM hierarchy_nodes`).
			WithArgs("course1", sql.NullString{}, "level").
			WillReturnRows(sqlmock.NewRows(hierarchyColumns()))

		nodes, err := repo.GetChildren(ctx, "course1", "", domain.NodeKindLevel)
		require.NoError(t, err)
		assert.Empty(t, nodes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
