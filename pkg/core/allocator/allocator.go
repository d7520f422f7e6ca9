package allocator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

// ErrInvalidPoints is returned when an issuer carries a negative or non-finite point value
var ErrInvalidPoints = errors.New("invalid issuer points")

// AllocationConfig contains the configuration for an allocation run
type AllocationConfig struct {
	// Members are the team member names in tie-break order
	Members []string

	// Issuers in input row order
	Issuers []model.IssuerRecord

	// DuplicatePolicy decides what happens to repeated issuer ids (defaults to skip)
	DuplicatePolicy DuplicatePolicy
}

// Allocator assigns issuers to team members.
// It owns the TeamState for a run and is not safe for concurrent use.
type Allocator struct {
	members   []string
	policy    DuplicatePolicy
	state     *TeamState
	firstRows map[string]int

	assignments []model.Assignment
	duplicates  []DuplicateIssuer
}

// Allocate is a convenience wrapper that builds an Allocator and runs it once
func Allocate(config AllocationConfig) (*Outcome, error) {
	allocator, err := NewAllocator(config.Members, config.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	return allocator.Allocate(config.Issuers)
}

// NewAllocator validates the member list and returns an Allocator with fresh state
func NewAllocator(members []string, policy DuplicatePolicy) (*Allocator, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	seen := make(map[string]bool, len(members))
	for _, name := range members {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("team member names must not be blank")
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, name)
		}
		seen[name] = true
	}

	if policy == "" {
		policy = DuplicatePolicySkip
	}
	if policy != DuplicatePolicySkip && policy != DuplicatePolicyReject {
		return nil, fmt.Errorf("unknown duplicate policy %q", policy)
	}

	a := &Allocator{
		members: append([]string(nil), members...),
		policy:  policy,
	}
	a.Reset()
	return a, nil
}

// Reset discards all accumulated state so the Allocator can run again
func (a *Allocator) Reset() {
	a.state = newTeamState(a.members)
	a.firstRows = make(map[string]int)
	a.assignments = nil
	a.duplicates = nil
}

// Team returns the current accumulator state
func (a *Allocator) Team() *TeamState {
	return a.state
}

// Allocate runs a full allocation over the given issuers.
// State is reset first, so repeated calls with the same input give the same outcome.
func (a *Allocator) Allocate(issuers []model.IssuerRecord) (*Outcome, error) {
	a.Reset()

	for _, issuer := range issuers {
		if math.IsNaN(issuer.Points) || math.IsInf(issuer.Points, 0) || issuer.Points < 0 {
			return nil, fmt.Errorf("%w: issuer %s has %v points", ErrInvalidPoints, issuer.ID, issuer.Points)
		}
	}

	if a.policy == DuplicatePolicyReject {
		if err := checkDuplicateIDs(issuers); err != nil {
			return nil, err
		}
	}

	buckets := PartitionByTier(issuers)

	a.allocateUS(buckets[model.TierUS])
	for _, tier := range model.TierPriority[1:] {
		a.allocateByLeastTotal(tier, buckets[tier])
	}

	return a.buildOutcome(), nil
}

// allocateUS hands out US issuers one per member per pass.
// Before each pass members are ordered by (US count, point total), stable on list order.
func (a *Allocator) allocateUS(issuers []model.IssuerRecord) {
	pending := make([]model.IssuerRecord, 0, len(issuers))
	for _, issuer := range issuers {
		if a.skipIfAllocated(issuer) {
			continue
		}
		// Reserve the id so a later US row with the same id is treated as a duplicate
		a.state.Allocated[issuer.ID] = true
		a.firstRows[issuer.ID] = issuer.Row
		pending = append(pending, issuer)
	}

	for len(pending) > 0 {
		order := a.usPassOrder()
		for _, member := range order {
			if len(pending) == 0 {
				break
			}
			a.assign(pending[0], member, model.TierUS)
			member.USCount++
			pending = pending[1:]
		}
	}
}

func (a *Allocator) usPassOrder() []*MemberState {
	order := append([]*MemberState(nil), a.state.Members...)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].USCount != order[j].USCount {
			return order[i].USCount < order[j].USCount
		}
		return order[i].PointTotal < order[j].PointTotal
	})
	return order
}

// allocateByLeastTotal gives each issuer to whichever member currently has the lowest point total
func (a *Allocator) allocateByLeastTotal(tier model.Tier, issuers []model.IssuerRecord) {
	for _, issuer := range issuers {
		if a.skipIfAllocated(issuer) {
			continue
		}
		a.assign(issuer, a.state.leastLoaded(), tier)
	}
}

// skipIfAllocated records a duplicate and returns true if the issuer id is already taken
func (a *Allocator) skipIfAllocated(issuer model.IssuerRecord) bool {
	if !a.state.Allocated[issuer.ID] {
		return false
	}
	a.duplicates = append(a.duplicates, DuplicateIssuer{
		Issuer:   issuer,
		FirstRow: a.firstRows[issuer.ID],
	})
	return true
}

func (a *Allocator) assign(issuer model.IssuerRecord, member *MemberState, tier model.Tier) {
	a.assignments = append(a.assignments, model.Assignment{
		Issuer: issuer,
		Member: member.Name,
		Tier:   tier,
	})
	member.PointTotal += issuer.Points
	a.state.Allocated[issuer.ID] = true
	if _, ok := a.firstRows[issuer.ID]; !ok {
		a.firstRows[issuer.ID] = issuer.Row
	}
}

func (a *Allocator) buildOutcome() *Outcome {
	// Initialize with empty slices (not nil) for easier consumption
	outcome := &Outcome{
		Assignments: []model.Assignment{},
		Duplicates:  []DuplicateIssuer{},
		Team:        a.state,
	}
	outcome.Assignments = append(outcome.Assignments, a.assignments...)
	outcome.Duplicates = append(outcome.Duplicates, a.duplicates...)
	return outcome
}

// checkDuplicateIDs returns ErrDuplicateIssuer listing every repeated id
func checkDuplicateIDs(issuers []model.IssuerRecord) error {
	firstRow := make(map[string]int, len(issuers))
	var repeated []string
	for _, issuer := range issuers {
		row, seen := firstRow[issuer.ID]
		if !seen {
			firstRow[issuer.ID] = issuer.Row
			continue
		}
		repeated = append(repeated, fmt.Sprintf("%s (rows %d and %d)", issuer.ID, row, issuer.Row))
	}
	if len(repeated) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateIssuer, strings.Join(repeated, ", "))
	}
	return nil
}

// InOrder returns the assignments arranged to follow the given record order.
// Each issuer id appears once, at the position of its first occurrence in records.
// Records with no assignment are left out.
func (o *Outcome) InOrder(records []model.IssuerRecord) []model.Assignment {
	byID := make(map[string]model.Assignment, len(o.Assignments))
	for _, assignment := range o.Assignments {
		byID[assignment.Issuer.ID] = assignment
	}

	ordered := make([]model.Assignment, 0, len(o.Assignments))
	emitted := make(map[string]bool, len(o.Assignments))
	for _, record := range records {
		if emitted[record.ID] {
			continue
		}
		assignment, ok := byID[record.ID]
		if !ok {
			continue
		}
		ordered = append(ordered, assignment)
		emitted[record.ID] = true
	}
	return ordered
}
