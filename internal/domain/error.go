package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Payment workflow
	ErrConfiguration     = errors.New("payment provider is not configured")
	ErrUpstream          = errors.New("payment provider request failed")
	ErrInvalidTransition = errors.New("payment status transition not allowed")
	ErrLocked            = errors.New("resource is being processed by another worker")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAlreadyActive     = errors.New("user already has an active subscription")

	// Storage
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
)
