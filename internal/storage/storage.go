// Package storage provides the persistence backends for regions,
// observations, assessments and alerts. MemoryStore backs tests and the
// synthetic data tooling; PostgresStore is the production backend. Both
// satisfy the consumer interfaces declared in the model, engine and alert
// packages.
package storage

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")
