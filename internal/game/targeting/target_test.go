package targeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestFilterDefaultsToUncovered(t *testing.T) {
	f := Filter{}
	top := Candidate{CardID: "a", Index: 2, StackSize: 3, FaceUp: true}
	covered := Candidate{CardID: "b", Index: 1, StackSize: 3, FaceUp: true}

	assert.True(t, f.Matches(top, Perspective{}))
	assert.False(t, f.Matches(covered, Perspective{}))
}

func TestFilterPositions(t *testing.T) {
	top := Candidate{CardID: "a", Index: 1, StackSize: 2}
	covered := Candidate{CardID: "b", Index: 0, StackSize: 2}

	assert.False(t, Filter{Position: PositionCovered}.Matches(top, Perspective{}))
	assert.True(t, Filter{Position: PositionCovered}.Matches(covered, Perspective{}))
	assert.True(t, Filter{Position: PositionAny}.Matches(top, Perspective{}))
	assert.True(t, Filter{Position: PositionAny}.Matches(covered, Perspective{}))
}

func TestFilterCommittedNeverMatches(t *testing.T) {
	c := Candidate{CardID: "a", Index: 0, StackSize: 1, Committed: true}
	assert.False(t, Filter{Position: PositionAny}.Matches(c, Perspective{}))
}

func TestFilterOwnerFaceAndSelf(t *testing.T) {
	own := Candidate{CardID: "src", Own: true, Index: 0, StackSize: 1, FaceUp: true}
	theirs := Candidate{CardID: "x", Own: false, Index: 0, StackSize: 1, FaceUp: false}
	p := Perspective{SourceCardID: "src"}

	assert.True(t, Filter{Owner: OwnerOwn}.Matches(own, p))
	assert.False(t, Filter{Owner: OwnerOwn}.Matches(theirs, p))
	assert.True(t, Filter{Owner: OwnerOpponent}.Matches(theirs, p))
	assert.False(t, Filter{Face: FaceDown}.Matches(own, p))
	assert.True(t, Filter{Face: FaceDown}.Matches(theirs, p))
	assert.False(t, Filter{ExcludeSelf: true}.Matches(own, p))
}

func TestFilterValues(t *testing.T) {
	c := Candidate{CardID: "a", Index: 0, StackSize: 1, Value: 3}

	assert.True(t, Filter{MinValue: intPtr(2), MaxValue: intPtr(3)}.Matches(c, Perspective{}))
	assert.False(t, Filter{MaxValue: intPtr(1)}.Matches(c, Perspective{}))
	assert.False(t, Filter{ValueEqualsStated: true}.Matches(c, Perspective{}))
	assert.True(t, Filter{ValueEqualsStated: true}.Matches(c, Perspective{StatedNumber: intPtr(3)}))
}

func TestScopeAndDestination(t *testing.T) {
	assert.True(t, ScopeThisLane.Allows(1, 1))
	assert.False(t, ScopeThisLane.Allows(0, 1))
	assert.False(t, ScopeOtherLanes.Allows(1, 1))
	assert.True(t, ScopeEachOtherLane.PerLane())

	lane := LaneInfo{Index: 2, Protocol: "Fire"}
	assert.False(t, DestinationAny.Allows(lane, 2, 0, "Fire"), "cannot move into its own lane")
	assert.True(t, DestinationAny.Allows(lane, 0, 0, "Fire"))
	assert.False(t, DestinationThisLane.Allows(lane, 0, 1, "Fire"))
	assert.True(t, DestinationAnotherLane.Allows(lane, 0, 1, "Fire"))
	assert.False(t, DestinationNonMatchingProtocol.Allows(lane, 0, 0, "Fire"))
	assert.True(t, DestinationNonMatchingProtocol.Allows(lane, 0, 0, "Water"))
}
