package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

func assignment(member string, points float64) model.Assignment {
	return model.Assignment{
		Issuer: model.IssuerRecord{ID: member + "-issuer", Points: points},
		Member: member,
	}
}

func TestValidate_TotalsAndDifferences(t *testing.T) {
	assignments := []model.Assignment{
		assignment("A", 10),
		assignment("B", 4),
		assignment("A", 2),
		assignment("C", 3),
	}

	summary, err := Validate(assignments, []string{"A", "B", "C"})
	require.NoError(t, err)

	assert.Equal(t, 19.0, summary.TotalPoints)
	assert.InDelta(t, 19.0/3, summary.AveragePointsPerMember, 1e-9)

	require.Len(t, summary.Members, 3)
	a, b, c := summary.Members[0], summary.Members[1], summary.Members[2]

	assert.Equal(t, "A", a.Member)
	assert.Equal(t, 12.0, a.Total)
	assert.InDelta(t, 12-19.0/3, a.DifferenceFromAverage, 1e-9)
	assert.True(t, a.AboveAverage)
	assert.False(t, a.BelowAverage)

	assert.Equal(t, "B", b.Member)
	assert.Equal(t, 4.0, b.Total)
	assert.True(t, b.BelowAverage)
	assert.False(t, b.AboveAverage)

	assert.Equal(t, "C", c.Member)
	assert.Equal(t, 3.0, c.Total)
	assert.True(t, c.BelowAverage)

	assert.InDelta(t, 9.0, summary.Spread(), 1e-9)
}

func TestValidate_ExactlyAverageIsNeitherAboveNorBelow(t *testing.T) {
	summary, err := Validate([]model.Assignment{assignment("A", 5), assignment("B", 5)}, []string{"A", "B"})
	require.NoError(t, err)

	for _, m := range summary.Members {
		assert.Zero(t, m.DifferenceFromAverage)
		assert.False(t, m.AboveAverage)
		assert.False(t, m.BelowAverage)
	}
}

func TestValidate_MemberWithNoAssignments(t *testing.T) {
	summary, err := Validate([]model.Assignment{assignment("A", 6)}, []string{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, 3.0, summary.AveragePointsPerMember)
	assert.Equal(t, 0.0, summary.Members[1].Total)
	assert.Equal(t, -3.0, summary.Members[1].DifferenceFromAverage)
}

func TestValidate_EmptyAssignments(t *testing.T) {
	summary, err := Validate(nil, []string{"A", "B"})
	require.NoError(t, err)

	assert.Zero(t, summary.AveragePointsPerMember)
	assert.Zero(t, summary.TotalPoints)
	assert.Len(t, summary.Members, 2)
}

func TestValidate_NoMembers(t *testing.T) {
	_, err := Validate([]model.Assignment{assignment("A", 1)}, nil)
	assert.ErrorIs(t, err, ErrNoMembers)
}

func TestValidate_UnknownMember(t *testing.T) {
	_, err := Validate([]model.Assignment{assignment("Z", 1)}, []string{"A"})
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestValidate_ConsistentWithAllocation(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("1", "US", 4.5, 2),
		issuer("2", "GB", 6.25, 3),
		issuer("3", "FR", 2, 4),
		issuer("4", "US", 9, 5),
		issuer("5", "", 3.1, 6),
		issuer("6", "TW", 0.7, 7),
	}
	members := []string{"A", "B", "C", "D"}

	outcome, err := Allocate(AllocationConfig{Members: members, Issuers: issuers})
	require.NoError(t, err)

	summary, err := Validate(outcome.Assignments, members)
	require.NoError(t, err)

	inputTotal := 0.0
	for _, i := range issuers {
		inputTotal += i.Points
	}

	memberTotal, differenceTotal := 0.0, 0.0
	for _, m := range summary.Members {
		memberTotal += m.Total
		differenceTotal += m.DifferenceFromAverage
		assert.InDelta(t, outcome.Team.Member(m.Member).PointTotal, m.Total, 1e-9)
	}
	assert.InDelta(t, inputTotal, memberTotal, 1e-9)
	assert.InDelta(t, 0, differenceTotal, 1e-9)

	// Idempotent on the same assignments
	again, err := Validate(outcome.Assignments, members)
	require.NoError(t, err)
	assert.Equal(t, summary, again)
}
