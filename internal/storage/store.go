// Package storage persists interviews.
package storage

import (
	"context"
	"errors"

	"github.com/spigell/mock-interviewer/internal/interview"
)

// ErrNotFound is returned when an interview does not exist for the caller.
var ErrNotFound = errors.New("interview not found")

// Repository stores interviews with their turns and evaluations.
type Repository interface {
	// SaveInterview creates or updates an interview. Turns and evaluation
	// records are append-only: saving again only adds entries past the ones
	// already stored, so a retried save is harmless.
	SaveInterview(ctx context.Context, iv *interview.Interview) error

	// GetInterview loads one interview with its turns and records.
	GetInterview(ctx context.Context, id string) (*interview.Interview, error)

	// ListInterviews returns every interview of a user, oldest first.
	ListInterviews(ctx context.Context, userID string) ([]*interview.Interview, error)

	// DeleteInterview removes an interview owned by userID.
	DeleteInterview(ctx context.Context, userID, id string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
