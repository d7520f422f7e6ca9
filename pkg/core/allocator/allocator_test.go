package allocator

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

func issuer(id, country string, points float64, row int) model.IssuerRecord {
	return model.IssuerRecord{
		ID:          id,
		Name:        "Issuer " + id,
		Points:      points,
		CountryCode: country,
		Row:         row,
	}
}

func memberOf(outcome *Outcome, issuerID string) string {
	for _, a := range outcome.Assignments {
		if a.Issuer.ID == issuerID {
			return a.Member
		}
	}
	return ""
}

func TestAllocate_WorkedScenario(t *testing.T) {
	// 3 US issuers + 2 tier 1 issuers across two members
	issuers := []model.IssuerRecord{
		issuer("i1", "US", 10, 2),
		issuer("i2", "US", 20, 3),
		issuer("i3", "US", 5, 4),
		issuer("i4", "GB", 8, 5),
		issuer("i5", "AU", 3, 6),
	}

	outcome, err := Allocate(AllocationConfig{
		Members: []string{"A", "B"},
		Issuers: issuers,
	})
	require.NoError(t, err)

	// Pass 1: A takes i1, B takes i2. Pass 2: A (1 US, 10pts) goes first and takes i3.
	// Tier 1: i4 goes to A (15 < 20), then i5 goes to B (20 < 23).
	require.Len(t, outcome.Assignments, 5)
	expected := []struct {
		id     string
		member string
		tier   model.Tier
	}{
		{"i1", "A", model.TierUS},
		{"i2", "B", model.TierUS},
		{"i3", "A", model.TierUS},
		{"i4", "A", model.TierOne},
		{"i5", "B", model.TierOne},
	}
	for i, e := range expected {
		assert.Equal(t, e.id, outcome.Assignments[i].Issuer.ID, "assignment %d", i)
		assert.Equal(t, e.member, outcome.Assignments[i].Member, "assignment %d", i)
		assert.Equal(t, e.tier, outcome.Assignments[i].Tier, "assignment %d", i)
	}

	a := outcome.Team.Member("A")
	b := outcome.Team.Member("B")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, 23.0, a.PointTotal)
	assert.Equal(t, 2, a.USCount)
	assert.Equal(t, 23.0, b.PointTotal)
	assert.Equal(t, 1, b.USCount)
	assert.Empty(t, outcome.Duplicates)
}

func TestAllocate_USRoundRobinUsesCountThenTotal(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("u1", "US", 50, 2),
		issuer("u2", "US", 1, 3),
		issuer("u3", "US", 1, 4),
		issuer("u4", "US", 1, 5),
		issuer("u5", "US", 30, 6),
		issuer("u6", "US", 2, 7),
		issuer("u7", "US", 9, 8),
	}

	outcome, err := Allocate(AllocationConfig{
		Members: []string{"A", "B", "C"},
		Issuers: issuers,
	})
	require.NoError(t, err)

	// Pass 1 in list order; pass 2 ordered B, C, A by total; pass 3 starts with B again
	assert.Equal(t, "A", memberOf(outcome, "u1"))
	assert.Equal(t, "B", memberOf(outcome, "u2"))
	assert.Equal(t, "C", memberOf(outcome, "u3"))
	assert.Equal(t, "B", memberOf(outcome, "u4"))
	assert.Equal(t, "C", memberOf(outcome, "u5"))
	assert.Equal(t, "A", memberOf(outcome, "u6"))
	assert.Equal(t, "B", memberOf(outcome, "u7"))

	assert.Equal(t, 52.0, outcome.Team.Member("A").PointTotal)
	assert.Equal(t, 11.0, outcome.Team.Member("B").PointTotal)
	assert.Equal(t, 31.0, outcome.Team.Member("C").PointTotal)
}

func TestAllocate_USCountsDifferByAtMostOne(t *testing.T) {
	for _, memberCount := range []int{1, 2, 3, 4, 7} {
		for _, usCount := range []int{0, 1, 5, 13, 20} {
			t.Run(fmt.Sprintf("%d members %d issuers", memberCount, usCount), func(t *testing.T) {
				members := make([]string, memberCount)
				for i := range members {
					members[i] = fmt.Sprintf("m%d", i)
				}
				issuers := make([]model.IssuerRecord, usCount)
				for i := range issuers {
					issuers[i] = issuer(fmt.Sprintf("u%d", i), "US", float64((i*37)%11), i+2)
				}

				outcome, err := Allocate(AllocationConfig{Members: members, Issuers: issuers})
				require.NoError(t, err)

				lowest, highest := math.MaxInt, 0
				for _, m := range outcome.Team.Members {
					lowest = min(lowest, m.USCount)
					highest = max(highest, m.USCount)
				}
				assert.LessOrEqual(t, highest-lowest, 1)
			})
		}
	}
}

func TestAllocate_TierPriorityOrder(t *testing.T) {
	// Rows deliberately out of tier order
	issuers := []model.IssuerRecord{
		issuer("other", "JP", 1, 2),
		issuer("t3", "CN", 1, 3),
		issuer("t2", "DE", 1, 4),
		issuer("t1", "CA", 1, 5),
		issuer("us", "US", 1, 6),
	}

	outcome, err := Allocate(AllocationConfig{Members: []string{"A"}, Issuers: issuers})
	require.NoError(t, err)

	visited := make([]string, len(outcome.Assignments))
	for i, a := range outcome.Assignments {
		visited[i] = a.Issuer.ID
	}
	assert.Equal(t, []string{"us", "t1", "t2", "t3", "other"}, visited)
}

func TestAllocate_GreedyLeastTotalIsLocallyOptimal(t *testing.T) {
	members := []string{"A", "B", "C"}
	var issuers []model.IssuerRecord
	countries := []string{"US", "GB", "FR", "BR", "", "US", "SG", "DE", "ZZ", "US"}
	for i := 0; i < 40; i++ {
		issuers = append(issuers, issuer(fmt.Sprintf("r%d", i), countries[i%len(countries)], float64((i*13)%17), i+2))
	}

	outcome, err := Allocate(AllocationConfig{Members: members, Issuers: issuers})
	require.NoError(t, err)

	// Replay the assignments and check every non-US step picked the lowest running total,
	// with ties going to the earliest member in the list
	totals := map[string]float64{}
	index := map[string]int{"A": 0, "B": 1, "C": 2}
	for _, a := range outcome.Assignments {
		if a.Tier != model.TierUS {
			chosen := totals[a.Member]
			for _, other := range members {
				if other == a.Member {
					continue
				}
				assert.LessOrEqual(t, chosen, totals[other], "issuer %s", a.Issuer.ID)
				if totals[other] == chosen {
					assert.Less(t, index[a.Member], index[other], "tie for issuer %s", a.Issuer.ID)
				}
			}
		}
		totals[a.Member] += a.Issuer.Points
	}
}

func TestAllocate_ZeroPointsFallBackToListOrder(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("a", "FR", 0, 2),
		issuer("b", "FR", 0, 3),
		issuer("c", "", 0, 4),
	}

	outcome, err := Allocate(AllocationConfig{Members: []string{"X", "Y"}, Issuers: issuers})
	require.NoError(t, err)

	// With every total tied at zero the first member always wins
	for _, a := range outcome.Assignments {
		assert.Equal(t, "X", a.Member)
	}
}

func TestAllocate_EmptyInput(t *testing.T) {
	outcome, err := Allocate(AllocationConfig{Members: []string{"A", "B"}})
	require.NoError(t, err)

	assert.NotNil(t, outcome.Assignments)
	assert.Empty(t, outcome.Assignments)
	assert.Empty(t, outcome.Duplicates)
	for _, m := range outcome.Team.Members {
		assert.Zero(t, m.PointTotal)
		assert.Zero(t, m.USCount)
	}
}

func TestAllocate_CoverageAndExclusivity(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("1", "US", 4, 2),
		issuer("2", "GB", 6, 3),
		issuer("3", "FR", 2, 4),
		issuer("2", "DE", 9, 5), // duplicate id
		issuer("4", "BR", 1, 6),
		issuer("5", "", 3, 7),
		issuer("1", "US", 8, 8), // duplicate id
	}

	outcome, err := Allocate(AllocationConfig{Members: []string{"A", "B"}, Issuers: issuers})
	require.NoError(t, err)

	seen := map[string]int{}
	for _, a := range outcome.Assignments {
		seen[a.Issuer.ID]++
	}
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1, "4": 1, "5": 1}, seen)
	assert.Len(t, outcome.Duplicates, 2)
}

func TestAllocate_DuplicateSkipKeepsFirstInTraversalOrder(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("X", "FR", 7, 2), // tier 2 row comes first in the file...
		issuer("Y", "GB", 3, 3),
		issuer("X", "US", 5, 4), // ...but US is visited first, so this row wins
		issuer("Y", "GB", 1, 5),
	}

	outcome, err := Allocate(AllocationConfig{Members: []string{"A", "B"}, Issuers: issuers})
	require.NoError(t, err)

	require.Len(t, outcome.Assignments, 2)
	assert.Equal(t, 5.0, outcome.Assignments[0].Issuer.Points)
	assert.Equal(t, "A", outcome.Assignments[0].Member)
	assert.Equal(t, "Y", outcome.Assignments[1].Issuer.ID)
	assert.Equal(t, "B", outcome.Assignments[1].Member)

	require.Len(t, outcome.Duplicates, 2)
	assert.Equal(t, 5, outcome.Duplicates[0].Issuer.Row)
	assert.Equal(t, 3, outcome.Duplicates[0].FirstRow)
	assert.Equal(t, 2, outcome.Duplicates[1].Issuer.Row)
	assert.Equal(t, 4, outcome.Duplicates[1].FirstRow)
}

func TestAllocate_DuplicateWithinUSTier(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("X", "US", 5, 2),
		issuer("X", "US", 5, 3),
		issuer("Z", "US", 1, 4),
	}

	outcome, err := Allocate(AllocationConfig{Members: []string{"A", "B"}, Issuers: issuers})
	require.NoError(t, err)

	require.Len(t, outcome.Assignments, 2)
	assert.Equal(t, "A", memberOf(outcome, "X"))
	assert.Equal(t, "B", memberOf(outcome, "Z"))
	require.Len(t, outcome.Duplicates, 1)
	assert.Equal(t, 3, outcome.Duplicates[0].Issuer.Row)
	assert.Equal(t, 2, outcome.Duplicates[0].FirstRow)
}

func TestAllocate_DuplicateRejectPolicy(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("X", "US", 5, 2),
		issuer("X", "FR", 5, 3),
	}

	_, err := Allocate(AllocationConfig{
		Members:         []string{"A"},
		Issuers:         issuers,
		DuplicatePolicy: DuplicatePolicyReject,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateIssuer)
	assert.Contains(t, err.Error(), "X (rows 2 and 3)")
}

func TestAllocate_InvalidPoints(t *testing.T) {
	for _, points := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := Allocate(AllocationConfig{
			Members: []string{"A"},
			Issuers: []model.IssuerRecord{issuer("X", "US", points, 2)},
		})
		assert.ErrorIs(t, err, ErrInvalidPoints)
	}
}

func TestNewAllocator_MemberValidation(t *testing.T) {
	_, err := NewAllocator(nil, DuplicatePolicySkip)
	assert.ErrorIs(t, err, ErrNoMembers)

	_, err = NewAllocator([]string{"A", "B", "A"}, DuplicatePolicySkip)
	assert.ErrorIs(t, err, ErrDuplicateMember)

	_, err = NewAllocator([]string{"A", " "}, DuplicatePolicySkip)
	assert.Error(t, err)

	_, err = NewAllocator([]string{"A"}, DuplicatePolicy("merge"))
	assert.Error(t, err)

	a, err := NewAllocator([]string{"A"}, "")
	require.NoError(t, err)
	assert.Equal(t, DuplicatePolicySkip, a.policy)
}

func TestAllocator_RerunIsDeterministic(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("1", "US", 4, 2),
		issuer("2", "GB", 6, 3),
		issuer("3", "FR", 2, 4),
		issuer("4", "US", 9, 5),
		issuer("5", "", 3, 6),
	}

	a, err := NewAllocator([]string{"A", "B", "C"}, DuplicatePolicySkip)
	require.NoError(t, err)

	first, err := a.Allocate(issuers)
	require.NoError(t, err)
	second, err := a.Allocate(issuers)
	require.NoError(t, err)

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Duplicates, second.Duplicates)

	// State was reset between runs rather than accumulated
	total := 0.0
	for _, m := range a.Team().Members {
		total += m.PointTotal
	}
	assert.Equal(t, 24.0, total)
}

func TestAllocator_ResetClearsState(t *testing.T) {
	a, err := NewAllocator([]string{"A"}, DuplicatePolicySkip)
	require.NoError(t, err)

	_, err = a.Allocate([]model.IssuerRecord{issuer("1", "US", 4, 2)})
	require.NoError(t, err)
	assert.Equal(t, 4.0, a.Team().Member("A").PointTotal)

	a.Reset()
	assert.Zero(t, a.Team().Member("A").PointTotal)
	assert.Zero(t, a.Team().Member("A").USCount)
	assert.Empty(t, a.Team().Allocated)
}

func TestOutcome_InOrder(t *testing.T) {
	issuers := []model.IssuerRecord{
		issuer("c", "", 1, 2),
		issuer("a", "US", 1, 3),
		issuer("b", "GB", 1, 4),
		issuer("a", "FR", 1, 5),
	}

	outcome, err := Allocate(AllocationConfig{Members: []string{"A", "B"}, Issuers: issuers})
	require.NoError(t, err)

	ordered := outcome.InOrder(issuers)
	require.Len(t, ordered, 3)
	assert.Equal(t, "c", ordered[0].Issuer.ID)
	assert.Equal(t, "a", ordered[1].Issuer.ID)
	assert.Equal(t, "US", ordered[1].Issuer.CountryCode)
	assert.Equal(t, "b", ordered[2].Issuer.ID)
}
