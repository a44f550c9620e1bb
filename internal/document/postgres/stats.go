package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	documentDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/document"
)

// StatsRepository reads dashboard aggregates straight from SQL. Placeholders are
// rebound to the connection's driver so the same query runs on pgx and sqlite.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) OwnerStats(ctx context.Context, ownerID int64, since time.Time) (*documentDatamodel.Stats, error) {
	query, args, err := squirrel.
		Select(
			"COUNT(*) AS total_docs",
			"CAST(COALESCE(SUM(size), 0) AS BIGINT) AS used_storage",
		).
		Column(squirrel.Expr("CAST(COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS BIGINT) AS activity", since)).
		From("documents").
		Where(squirrel.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var stats documentDatamodel.Stats
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(query), args...).StructScan(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
