/*
errors.go - Centralized error types for the rating engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Lookup and rating packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Lookup errors - Occupation, variant or adjustment row not found
  2. Input errors - Out-of-range numerics, malformed dates, empty batches
  3. Reference data errors - Tables that do not match the expected schema

USAGE:
  Callers classify errors with errors.Is / errors.As:

    if errors.Is(err, generic.ErrVariantNotFound) {
        // lenient mode may substitute the default variant
    }

SEE ALSO:
  - floor.go: Raises AdjustmentNotFoundError on exhausted lookups
  - lookup/tables.go: Raises occupation and variant errors
  - rating/engine.go: Applies the failure policy to these errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOccupationNotFound is returned when an occupation cannot be mapped
	// to a group number by any of the resolution strategies.
	ErrOccupationNotFound = errors.New("occupation not found")

	// ErrVariantNotFound is returned when no variant letter exists for a
	// group and impairment code, including after the ARM/LEG retries.
	ErrVariantNotFound = errors.New("variant not found")

	// ErrAdjustmentNotFound is returned when an adjustment table has no
	// usable row or column for the requested key.
	ErrAdjustmentNotFound = errors.New("adjustment not found")

	// ErrInvalidInput is returned for caller data that fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTableSchema is returned when reference data is malformed.
	ErrTableSchema = errors.New("reference table schema mismatch")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OccupationNotFoundError reports the occupation text that failed to resolve.
type OccupationNotFoundError struct {
	Occupation string
}

func (e *OccupationNotFoundError) Error() string {
	return fmt.Sprintf("occupation %q not found in occupation directory; check the title or use a more general term", e.Occupation)
}

func (e *OccupationNotFoundError) Unwrap() error {
	return ErrOccupationNotFound
}

// VariantNotFoundError reports the group and impairment code with no variant.
type VariantNotFoundError struct {
	Group          int
	ImpairmentCode string
	Partition      string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("no variant found for impairment code %s and group %d (table %s)",
		e.ImpairmentCode, e.Group, e.Partition)
}

func (e *VariantNotFoundError) Unwrap() error {
	return ErrVariantNotFound
}

// AdjustmentNotFoundError reports a failed adjustment-table lookup.
type AdjustmentNotFoundError struct {
	Table  string
	Key    string // floor-match target, formatted
	Column string // empty when the row itself was missing
	Reason string
}

func (e *AdjustmentNotFoundError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("no %s row for %s: %s", e.Table, e.Key, e.Reason)
	}
	return fmt.Sprintf("no %s value for %s in column %q: %s", e.Table, e.Key, e.Column, e.Reason)
}

func (e *AdjustmentNotFoundError) Unwrap() error {
	return ErrAdjustmentNotFound
}

// InputError provides details about a validation failure.
type InputError struct {
	Field  string // e.g., "impairments[2].wpi", "age"
	Value  any
	Reason string
}

func (e *InputError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// SchemaError reports a malformed reference table.
type SchemaError struct {
	Table  string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: %s", e.Table, e.Detail)
}

func (e *SchemaError) Unwrap() error {
	return ErrTableSchema
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsLookupFailure returns true for errors a lenient engine may recover from.
func IsLookupFailure(err error) bool {
	return errors.Is(err, ErrVariantNotFound) ||
		errors.Is(err, ErrAdjustmentNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates missing reference data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOccupationNotFound) ||
		errors.Is(err, ErrVariantNotFound) ||
		errors.Is(err, ErrAdjustmentNotFound)
}
