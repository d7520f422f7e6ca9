package allocator

import (
	"errors"

	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

var (
	// ErrNoMembers is returned when allocation or validation is attempted without team members
	ErrNoMembers = errors.New("at least one team member is required")

	// ErrDuplicateMember is returned when the same member name appears twice
	ErrDuplicateMember = errors.New("duplicate team member")

	// ErrDuplicateIssuer is returned under DuplicatePolicyReject when an issuer id repeats
	ErrDuplicateIssuer = errors.New("duplicate issuer id")

	// ErrUnknownMember is returned when an assignment names a member outside the member list
	ErrUnknownMember = errors.New("assignment references unknown team member")
)

// DuplicatePolicy controls how repeated issuer ids are handled
type DuplicatePolicy string

const (
	// DuplicatePolicySkip assigns the first occurrence of an id and skips later ones
	DuplicatePolicySkip DuplicatePolicy = "skip"

	// DuplicatePolicyReject fails the allocation if any id occurs more than once
	DuplicatePolicyReject DuplicatePolicy = "reject"
)

// MemberState is the running workload of a single team member during an allocation run
type MemberState struct {
	Name string

	// PointTotal is the sum of points of every issuer assigned so far
	PointTotal float64

	// USCount is the number of US issuers assigned so far
	USCount int
}

// TeamState holds the accumulators for one allocation run.
// Members are kept in the order they were supplied, which is also the tie-break order.
type TeamState struct {
	Members []*MemberState

	// Allocated is the set of issuer ids that already have an assignment
	Allocated map[string]bool
}

func newTeamState(members []string) *TeamState {
	state := &TeamState{
		Members:   make([]*MemberState, len(members)),
		Allocated: make(map[string]bool),
	}
	for i, name := range members {
		state.Members[i] = &MemberState{Name: name}
	}
	return state
}

// Member returns the state for the named member, or nil if unknown
func (ts *TeamState) Member(name string) *MemberState {
	for _, m := range ts.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// leastLoaded returns the member with the smallest point total.
// Ties go to the earliest member in list order.
func (ts *TeamState) leastLoaded() *MemberState {
	best := ts.Members[0]
	for _, m := range ts.Members[1:] {
		if m.PointTotal < best.PointTotal {
			best = m
		}
	}
	return best
}

// DuplicateIssuer records an input row that was not allocated because its id was already taken
type DuplicateIssuer struct {
	Issuer model.IssuerRecord

	// FirstRow is the row of the occurrence that was allocated
	FirstRow int
}

// Outcome is the result of an allocation run
type Outcome struct {
	// Assignments in visit order: US, Tier 1, Tier 2, Tier 3, Unclassified
	Assignments []model.Assignment

	// Duplicates lists rows skipped because their id was already allocated
	Duplicates []DuplicateIssuer

	// Team is the final accumulator state
	Team *TeamState
}
