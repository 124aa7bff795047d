package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	BeginTx(ctx context.Context) (Tx, error)
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tx is an explicit write transaction. Exactly one of Commit or Rollback
// ends it; Rollback after Commit is a no-op.
type Tx interface {
	Run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
