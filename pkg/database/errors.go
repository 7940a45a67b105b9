// Package database provides sentinel errors for repository operations.
package database

import "errors"

// Sentinel errors for database operations.
var (
	// ErrNotFound is returned when a requested entity is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrRuleNotFound is returned when a notification rule is not found.
	ErrRuleNotFound = errors.New("notification rule not found")

	// ErrGeneratorStateNotFound is returned when no notification
	// generator cursor has ever been saved (first run).
	ErrGeneratorStateNotFound = errors.New("notification generator state not found")

	// ErrValidatorInfoNotFound is returned when get_validator_info has
	// no relational-store row for the requested account at the
	// requested block.
	ErrValidatorInfoNotFound = errors.New("validator info not found")
)
