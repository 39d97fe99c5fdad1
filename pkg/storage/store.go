package storage

import (
	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// Store persists per-invocation metric records so dispatch history survives
// controller restarts and is queryable through the API.
type Store interface {
	SaveInvocation(rec *types.InvocationRecord) error

	// ListInvocations returns the most recent records for a function, newest
	// first, capped at limit (0 means all)
	ListInvocations(function string, limit int) ([]*types.InvocationRecord, error)

	Close() error
}
