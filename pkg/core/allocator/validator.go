package allocator

import (
	"fmt"

	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

// MemberSummary compares one member's workload with the team average
type MemberSummary struct {
	Member                string
	Total                 float64
	DifferenceFromAverage float64
	AboveAverage          bool
	BelowAverage          bool
}

// ValidationSummary is the per-member balance report for an allocation
type ValidationSummary struct {
	// Members in the same order as the member list
	Members []MemberSummary

	TotalPoints            float64
	AveragePointsPerMember float64
}

// Validate aggregates points per member and compares each total with the average.
// The member list must be the one used for allocation.
// It does not modify assignments and returns the same summary for the same input.
func Validate(assignments []model.Assignment, members []string) (*ValidationSummary, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	totals := make(map[string]float64, len(members))
	for _, member := range members {
		totals[member] = 0
	}

	totalPoints := 0.0
	for _, assignment := range assignments {
		if _, ok := totals[assignment.Member]; !ok {
			return nil, fmt.Errorf("%w: %s (issuer %s)", ErrUnknownMember, assignment.Member, assignment.Issuer.ID)
		}
		totals[assignment.Member] += assignment.Issuer.Points
		totalPoints += assignment.Issuer.Points
	}

	average := totalPoints / float64(len(members))

	summary := &ValidationSummary{
		Members:                make([]MemberSummary, 0, len(members)),
		TotalPoints:            totalPoints,
		AveragePointsPerMember: average,
	}
	for _, member := range members {
		difference := totals[member] - average
		summary.Members = append(summary.Members, MemberSummary{
			Member:                member,
			Total:                 totals[member],
			DifferenceFromAverage: difference,
			AboveAverage:          difference > 0,
			BelowAverage:          difference < 0,
		})
	}

	return summary, nil
}

// Spread returns the gap between the most and least loaded members
func (s *ValidationSummary) Spread() float64 {
	if len(s.Members) == 0 {
		return 0
	}
	lowest, highest := s.Members[0].Total, s.Members[0].Total
	for _, m := range s.Members[1:] {
		lowest = min(lowest, m.Total)
		highest = max(highest, m.Total)
	}
	return highest - lowest
}
