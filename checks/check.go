package checks

import (
	"errors"
	"fmt"

	"github.com/viant/mlinspect/inspections"
)

// ErrMissingInspection reports a check requiring inspection output that was never computed
var ErrMissingInspection = errors.New("missing inspection")

// Status is the outcome of a check
type Status string

const (
	Success Status = "SUCCESS"
	Failure Status = "FAILURE"
)

// Check is a policy evaluated over a finished inspection result
type Check interface {
	// ID returns a stable identity, equal configurations yield equal IDs
	ID() string
	// RequiredInspections returns inspections that must run before evaluation
	RequiredInspections() []inspections.Inspection
	Evaluate(result *inspections.Result) (*Result, error)
}

// Result is the outcome of one check evaluation; Details holds the check specific data
type Result struct {
	Check       Check
	Status      Status
	Description string
	Details     any
}

// ValidateRequired returns ErrMissingInspection if a required inspection did not run
func ValidateRequired(check Check, result *inspections.Result) error {
	for _, inspection := range check.RequiredInspections() {
		if !result.Has(inspection) {
			return fmt.Errorf("%v requires %v: %w", check.ID(), inspection.ID(), ErrMissingInspection)
		}
	}
	return nil
}
