package postgres

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/gobridge/bridge-points/db"
)

// basePostgresRepo is shared by every table repository. The querier is
// either the connection pool or an open transaction.
type basePostgresRepo struct {
	table string
	db    db.Querier
}

func newBasePostgresRepo(table string, db db.Querier) *basePostgresRepo {
	return &basePostgresRepo{
		table: table,
		db:    db,
	}
}

func (r *basePostgresRepo) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(r.db.PlaceholderFormat())
}
