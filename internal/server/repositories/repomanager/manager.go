package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/platerecon/internal/dbx"
	"github.com/dmitrijs2005/platerecon/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can decide the transactional scope.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
