package partition

import (
	"errors"
	"fmt"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
)

var (
	ErrInvalidAssignment = errors.New("invalid assignment")
	ErrInvalidFlip       = errors.New("invalid flip")
	ErrUnknownDistrict   = errors.New("unknown district")
	ErrUnknownUpdater    = errors.New("unknown updater")
	ErrInvalidUpdater    = errors.New("invalid updater")
	ErrUpdaterCycle      = errors.New("updater dependency cycle")
)

// InvalidAssignmentError. the initial mapping does not describe a valid partition of the graph.
type InvalidAssignmentError struct {
	Node   da.Index
	Found  int
	Min    int
	Max    int
	Reason string
}

func (e *InvalidAssignmentError) Error() string {
	if e.Found > 0 {
		return fmt.Sprintf("%v: %s (found %d districts, expected %d..%d)", ErrInvalidAssignment, e.Reason, e.Found, e.Min, e.Max)
	}
	return fmt.Sprintf("%v: %s (node %d)", ErrInvalidAssignment, e.Reason, e.Node)
}

func (e *InvalidAssignmentError) Unwrap() error {
	return ErrInvalidAssignment
}

// InvalidFlipError. a flip that the cut-edge frontier would never produce.
type InvalidFlipError struct {
	Node     da.Index
	District DistrictID
	Reason   string
}

func (e *InvalidFlipError) Error() string {
	return fmt.Sprintf("%v: node %d to district %d: %s", ErrInvalidFlip, e.Node, e.District, e.Reason)
}

func (e *InvalidFlipError) Unwrap() error {
	return ErrInvalidFlip
}
