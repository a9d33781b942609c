package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

func TestReportConflict(t *testing.T) {
	a := NewArbiter(zap.NewNop())

	rec := a.ReportConflict(types.ConflictResource, []string{"w1", "w2"}, "db-main", "both want the write lock")
	require.NotEmpty(t, rec.ID)
	assert.False(t, rec.Resolved)
	assert.Equal(t, 1, a.ActiveConflicts())
	assert.Equal(t, 1, a.TotalConflicts())

	got, ok := a.Conflict(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "db-main", got.Resource)
}

func TestResolveByPriority(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	rec := a.ReportConflict(types.ConflictPriority, []string{"w1", "w2", "w3"}, "", "")

	winner, ok := a.ResolveByPriority(rec.ID, map[string]int{"w1": 3, "w2": 8, "w3": 5})
	require.True(t, ok)
	assert.Equal(t, "w2", winner)
	assert.Equal(t, 0, a.ActiveConflicts())
	assert.Equal(t, 1, a.ResolvedCount())

	got, _ := a.Conflict(rec.ID)
	assert.True(t, got.Resolved)
	assert.Equal(t, types.ResolutionPriority, got.Resolution)
	assert.Equal(t, "w2", got.Winner)
}

func TestResolveByPriorityTieGoesToFirstListed(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	rec := a.ReportConflict(types.ConflictPriority, []string{"w2", "w1"}, "", "")

	winner, ok := a.ResolveByPriority(rec.ID, map[string]int{"w1": 5, "w2": 5})
	require.True(t, ok)
	assert.Equal(t, "w2", winner)
}

func TestResolveByAuthority(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	rec := a.ReportConflict(types.ConflictDecision, []string{"sup", "worker"}, "", "")

	winner, ok := a.ResolveByAuthority(rec.ID, map[string]int{
		"sup":    types.AuthorityRank(types.AuthoritySupervisor),
		"worker": types.AuthorityRank(types.AuthorityWorker),
	})
	require.True(t, ok)
	assert.Equal(t, "sup", winner)
}

func TestResolveByConsensusReturnsOption(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	rec := a.ReportConflict(types.ConflictDecision, []string{"a", "b", "c"}, "", "")

	winner, ok := a.ResolveByConsensus(rec.ID, map[string]string{
		"a": "plan-x",
		"b": "plan-y",
		"c": "plan-x",
	})
	require.True(t, ok)
	assert.Equal(t, "plan-x", winner)
}

func TestResolveByConsensusTieGoesToFirstSeen(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	rec := a.ReportConflict(types.ConflictDecision, []string{"a", "b"}, "", "")

	// 各一票：按 AgentsInvolved 顺序先计到的选项胜出。
	winner, ok := a.ResolveByConsensus(rec.ID, map[string]string{
		"a": "plan-x",
		"b": "plan-y",
	})
	require.True(t, ok)
	assert.Equal(t, "plan-x", winner)
}

func TestEscalateConflict(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	rec := a.ReportConflict(types.ConflictResource, []string{"a", "b"}, "gpu-0", "")

	require.True(t, a.EscalateConflict(rec.ID))
	got, _ := a.Conflict(rec.ID)
	assert.True(t, got.Resolved)
	assert.Equal(t, types.ResolutionEscalation, got.Resolution)
	assert.Empty(t, got.Winner)
}

func TestResolveUnknownOrAlreadyResolved(t *testing.T) {
	a := NewArbiter(zap.NewNop())

	_, ok := a.ResolveByPriority("missing", map[string]int{"a": 1})
	assert.False(t, ok)

	rec := a.ReportConflict(types.ConflictResource, []string{"a"}, "", "")
	_, ok = a.ResolveByPriority(rec.ID, map[string]int{"a": 1})
	require.True(t, ok)

	_, ok = a.ResolveByAuthority(rec.ID, map[string]int{"a": 1})
	assert.False(t, ok, "resolving twice must fail")
}

func TestResourceLocks(t *testing.T) {
	a := NewArbiter(zap.NewNop())

	require.True(t, a.LockResource("db-main", "w1"))
	assert.True(t, a.LockResource("db-main", "w1"), "re-lock by holder is idempotent")
	assert.False(t, a.LockResource("db-main", "w2"))
	assert.Equal(t, "w1", a.ResourceOwner("db-main"))
	assert.Equal(t, 1, a.LockedResources())

	assert.False(t, a.UnlockResource("db-main", "w2"), "only holder may unlock")
	require.True(t, a.UnlockResource("db-main", "w1"))
	assert.Empty(t, a.ResourceOwner("db-main"))
	assert.Equal(t, 0, a.LockedResources())

	assert.False(t, a.UnlockResource("db-main", "w1"), "unlocking a free resource fails")
	assert.True(t, a.LockResource("db-main", "w2"), "freed resource can be re-acquired")
}

func TestDetectDeadlockSimpleCycle(t *testing.T) {
	a := NewArbiter(zap.NewNop())

	cycles := a.DetectDeadlock(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	})
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycles[0])
}

func TestDetectDeadlockAcyclic(t *testing.T) {
	a := NewArbiter(zap.NewNop())

	cycles := a.DetectDeadlock(map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
		"d": {},
	})
	assert.Empty(t, cycles)
}

func TestDetectDeadlockMultipleIndependentCycles(t *testing.T) {
	a := NewArbiter(zap.NewNop())

	cycles := a.DetectDeadlock(map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"x": {"y"},
		"y": {"z"},
		"z": {"x"},
	})
	require.Len(t, cycles, 2)

	var sizes []int
	for _, c := range cycles {
		sizes = append(sizes, len(c))
	}
	assert.ElementsMatch(t, []int{2, 3}, sizes)
}

func TestDetectDeadlockSelfWait(t *testing.T) {
	a := NewArbiter(zap.NewNop())

	cycles := a.DetectDeadlock(map[string][]string{"a": {"a"}})
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a"}, cycles[0])
}
