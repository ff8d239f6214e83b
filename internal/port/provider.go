// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
)

// FilterOp is a comparison operator understood by the generic provider.
// Adapters translate these to their backend's query language; an operator an
// adapter cannot express surfaces as domain.ErrUnsupportedOperation.
type FilterOp string

const (
	OpEq      FilterOp = "eq"
	OpNeq     FilterOp = "neq"
	OpLt      FilterOp = "lt"
	OpLte     FilterOp = "lte"
	OpGt      FilterOp = "gt"
	OpGte     FilterOp = "gte"
	OpIn      FilterOp = "in"
	OpBetween FilterOp = "between"
	OpIsNull  FilterOp = "isnull"
)

// Filter is one predicate of a query.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
	// Upper bound for OpBetween.
	ValueEnd any
}

// Sort orders query results.
type Sort struct {
	Field      string
	Descending bool
}

// Page bounds query results.
type Page struct {
	Offset int
	Limit  int
}

// BatchOpKind tags one operation inside an atomic batch.
type BatchOpKind string

const (
	BatchInsert BatchOpKind = "insert"
	BatchUpdate BatchOpKind = "update"
	BatchDelete BatchOpKind = "delete"
)

// BatchOp is one mutation of an atomic batch. The provider executes the
// whole batch as a unit: all operations apply or none do.
type BatchOp struct {
	Kind       BatchOpKind
	Collection string
	ID         string
	Entity     map[string]any
}

// Record is a raw row from the provider.
type Record = map[string]any

// DataProvider is the mandatory capability surface of the generic
// data-access collaborator: CRUD by id, filtered query, count, and atomic
// batch execution. Optional capabilities (ChangeStreamer, RawQuerier) are
// separate interfaces that callers probe with a type assertion — never
// assume them.
type DataProvider interface {
	Create(ctx context.Context, collection string, entity Record) (Record, error)
	GetByID(ctx context.Context, collection, id string) (Record, error)
	UpdateFields(ctx context.Context, collection, id string, fields Record) error
	Delete(ctx context.Context, collection, id string) error
	DeleteMany(ctx context.Context, collection string, ids []string) error
	Query(ctx context.Context, collection string, filters []Filter, sort []Sort, page Page) ([]Record, error)
	Count(ctx context.Context, collection string, filters []Filter) (int, error)
	ExecBatch(ctx context.Context, ops []BatchOp) error
}

// ChangeEvent is one entry of a real-time change feed.
type ChangeEvent struct {
	Kind   string // "added", "modified", "removed"
	ID     string
	Entity Record
}

// ChangeStreamer is the optional real-time feed capability.
type ChangeStreamer interface {
	Watch(ctx context.Context, collection string, filters []Filter) (<-chan ChangeEvent, func(), error)
}

// RawQuerier is the optional raw-query escape hatch.
type RawQuerier interface {
	RawQuery(ctx context.Context, query string, args ...any) ([]Record, error)
}

// WarningSink receives non-fatal conditions the core detects but does not
// act on, such as probable duplicate transactions. Implementations must not
// block; the default sink logs structurally.
type WarningSink interface {
	Warn(ctx context.Context, code string, fields map[string]any)
}

// PasswordHasher is the external credential-hashing collaborator.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// TokenIssuer is the external token-issuance collaborator.
type TokenIssuer interface {
	Issue(userID, email string) (token string, expiresAt int64, err error)
}

// TokenVerifier validates access tokens on protected routes.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
