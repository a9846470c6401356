// Package storage persists routines: the playlist a routine was built from,
// its videos, and one task per scheduled video.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists indicates the entity already exists in storage.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("create", "read", "update", "delete").
	Op string
	// Entity is the entity type ("routine", "task", "store", etc.).
	Entity string
	// ID is the entity ID if applicable.
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store persists routine plans. Implementations must be safe for
// concurrent use.
type Store interface {
	// CreateRoutine saves the playlist, videos, routine and tasks of plan
	// in one step. Entities without an ID get one.
	CreateRoutine(ctx context.Context, plan *RoutinePlan) error
	// GetRoutine loads a routine with its playlist, videos and tasks.
	GetRoutine(ctx context.Context, id string) (*RoutinePlan, error)
	// ListRoutines returns all routines, newest first.
	ListRoutines(ctx context.Context) ([]*Routine, error)
	// DeleteRoutine removes a routine together with its tasks, playlist
	// and videos.
	DeleteRoutine(ctx context.Context, id string) error
	// SetTaskCompleted marks a task done at the given time, or clears it.
	SetTaskCompleted(ctx context.Context, taskID string, completed bool, at time.Time) (*Task, error)
	// ListTasksForDate returns the tasks of active routines scheduled on
	// date (YYYY-MM-DD), ordered by routine and position.
	ListTasksForDate(ctx context.Context, date string) ([]*Task, error)

	// Close releases any resources held by the store.
	Close() error
}
