package dataset

import "fmt"

// SchemaError reports a structural problem in the input panel: duplicate
// (agency, sku, date) keys, missing target values, or absent required columns.
// Schema errors are fatal for the run that triggers them.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema: " + e.Reason
}

// ParseError reports a malformed field value in the raw input.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyPartitionError reports that a temporal split produced an empty side.
type EmptyPartitionError struct {
	Side   string // "train" or "test"
	Cutoff string
}

func (e *EmptyPartitionError) Error() string {
	return fmt.Sprintf("temporal split: %s partition is empty (cutoff %s)", e.Side, e.Cutoff)
}
