package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

// buildSimpleTree creates master -> {sup1, sup2} -> {worker1, worker2}.
func buildSimpleTree(t *testing.T) (*AgentTree, *types.AgentNode, *types.AgentNode, *types.AgentNode, *types.AgentNode, *types.AgentNode) {
	t.Helper()
	tree := NewAgentTree(0, zap.NewNop())
	master := tree.AddAgent("master", types.AuthorityMaster, types.AutonomyFull, "", nil)
	sup1 := tree.AddAgent("sup1", types.AuthoritySupervisor, types.AutonomyHigh, master.ID, []string{"analyze", "plan"})
	sup2 := tree.AddAgent("sup2", types.AuthoritySupervisor, types.AutonomyHigh, master.ID, []string{"execute", "monitor"})
	w1 := tree.AddAgent("worker1", types.AuthorityWorker, types.AutonomyMedium, sup1.ID, []string{"code", "test"})
	w2 := tree.AddAgent("worker2", types.AuthorityWorker, types.AutonomyMedium, sup2.ID, []string{"deploy", "monitor"})
	return tree, master, sup1, sup2, w1, w2
}

func TestAddAgent(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	agent := tree.AddAgent("test", types.AuthorityWorker, types.AutonomyMedium, "", nil)
	assert.Equal(t, "test", agent.Name)
	assert.True(t, agent.Active)
	assert.Equal(t, 1, tree.AgentCount())
}

func TestAddAgentWithParent(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	parent := tree.AddAgent("parent", types.AuthorityMaster, types.AutonomyFull, "", nil)
	child := tree.AddAgent("child", types.AuthorityWorker, types.AutonomyMedium, parent.ID, nil)
	assert.Equal(t, parent.ID, child.ParentID)
	assert.Contains(t, parent.ChildrenIDs, child.ID)
}

func TestAddAgentUnknownParentLeftUnlinked(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	child := tree.AddAgent("child", types.AuthorityWorker, types.AutonomyMedium, "nonexistent", nil)
	assert.Empty(t, child.ParentID)
	assert.Equal(t, 1, tree.AgentCount())
}

func TestAddAgentBeyondMaxDepthLeftUnlinked(t *testing.T) {
	tree := NewAgentTree(2, zap.NewNop())
	a := tree.AddAgent("a", types.AuthorityMaster, types.AutonomyFull, "", nil)
	b := tree.AddAgent("b", types.AuthoritySupervisor, types.AutonomyHigh, a.ID, nil)
	c := tree.AddAgent("c", types.AuthorityLead, types.AutonomyMedium, b.ID, nil)
	// c is at depth 2 == maxDepth, so d must not be linked under it.
	d := tree.AddAgent("d", types.AuthorityWorker, types.AutonomyMedium, c.ID, nil)

	assert.Equal(t, 2, tree.Depth(c.ID))
	assert.Empty(t, d.ParentID)
	assert.NotContains(t, c.ChildrenIDs, d.ID)
	// The node itself still exists.
	assert.Equal(t, 4, tree.AgentCount())
}

func TestRoot(t *testing.T) {
	tree, master, _, _, _, _ := buildSimpleTree(t)
	root, ok := tree.Root()
	require.True(t, ok)
	assert.Equal(t, master.ID, root.ID)
}

func TestRemoveAgent(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	agent := tree.AddAgent("test", types.AuthorityWorker, types.AutonomyMedium, "", nil)
	assert.True(t, tree.RemoveAgent(agent.ID))
	assert.Equal(t, 0, tree.AgentCount())
}

func TestRemoveAgentNotFound(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	assert.False(t, tree.RemoveAgent("nonexistent"))
}

func TestRemoveAgentReparentsChildren(t *testing.T) {
	tree, master, sup1, _, w1, _ := buildSimpleTree(t)
	require.True(t, tree.RemoveAgent(sup1.ID))

	// worker1 now hangs directly under master.
	got, ok := tree.Agent(w1.ID)
	require.True(t, ok)
	assert.Equal(t, master.ID, got.ParentID)
	assert.Contains(t, master.ChildrenIDs, w1.ID)
	assert.NotContains(t, master.ChildrenIDs, sup1.ID)
}

func TestRemoveRootOrphansChildren(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	p := tree.AddAgent("parent", types.AuthorityMaster, types.AutonomyFull, "", nil)
	c := tree.AddAgent("child", types.AuthorityWorker, types.AutonomyMedium, p.ID, nil)

	require.True(t, tree.RemoveAgent(p.ID))
	assert.Equal(t, 1, tree.AgentCount())
	got, ok := tree.Agent(c.ID)
	require.True(t, ok)
	assert.Empty(t, got.ParentID)
}

func TestParentAndChildren(t *testing.T) {
	tree, master, sup1, _, _, _ := buildSimpleTree(t)

	parent, ok := tree.Parent(sup1.ID)
	require.True(t, ok)
	assert.Equal(t, master.ID, parent.ID)

	_, ok = tree.Parent(master.ID)
	assert.False(t, ok)

	assert.Len(t, tree.Children(master.ID), 2)
}

func TestAncestors(t *testing.T) {
	tree, master, sup1, _, w1, _ := buildSimpleTree(t)
	ancestors := tree.Ancestors(w1.ID)
	require.Len(t, ancestors, 2)
	assert.Equal(t, sup1.ID, ancestors[0].ID)
	assert.Equal(t, master.ID, ancestors[1].ID)
}

func TestDescendants(t *testing.T) {
	tree, master, _, _, _, _ := buildSimpleTree(t)
	assert.Len(t, tree.Descendants(master.ID), 4)
}

func TestReportingChain(t *testing.T) {
	tree, master, sup1, _, w1, _ := buildSimpleTree(t)
	chain := tree.ReportingChain(w1.ID)
	assert.Equal(t, []string{sup1.ID, master.ID}, chain)
}

func TestCanDelegate(t *testing.T) {
	tree, master, sup1, sup2, w1, _ := buildSimpleTree(t)

	assert.True(t, tree.CanDelegate(master.ID, sup1.ID))
	assert.True(t, tree.CanDelegate(sup1.ID, w1.ID))
	assert.True(t, tree.CanDelegate(master.ID, w1.ID))
	// Never upward, never sideways.
	assert.False(t, tree.CanDelegate(w1.ID, sup1.ID))
	assert.False(t, tree.CanDelegate(sup1.ID, sup2.ID))
}

func TestCanDelegateInactiveTarget(t *testing.T) {
	tree, master, sup1, _, _, _ := buildSimpleTree(t)
	require.True(t, tree.SetActive(sup1.ID, false))
	assert.False(t, tree.CanDelegate(master.ID, sup1.ID))
}

func TestFindByCapability(t *testing.T) {
	tree, _, _, _, w1, _ := buildSimpleTree(t)
	matched := tree.FindByCapability("code")
	require.Len(t, matched, 1)
	assert.Equal(t, w1.ID, matched[0].ID)

	// Inactive agents are excluded.
	tree.SetActive(w1.ID, false)
	assert.Empty(t, tree.FindByCapability("code"))
}

func TestSetAuthority(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	agent := tree.AddAgent("test", types.AuthorityWorker, types.AutonomyMedium, "", nil)
	assert.True(t, tree.SetAuthority(agent.ID, types.AuthorityLead))
	assert.Equal(t, types.AuthorityLead, agent.Authority)
	assert.False(t, tree.SetAuthority("nonexistent", types.AuthorityLead))
}

func TestSetWorkloadClamped(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	agent := tree.AddAgent("test", types.AuthorityWorker, types.AutonomyMedium, "", nil)
	require.True(t, tree.SetWorkload(agent.ID, 1.7))
	assert.Equal(t, 1.0, agent.Workload)
	require.True(t, tree.SetWorkload(agent.ID, -0.2))
	assert.Equal(t, 0.0, agent.Workload)
}

func TestActiveCount(t *testing.T) {
	tree, _, _, _, w1, _ := buildSimpleTree(t)
	assert.Equal(t, 5, tree.ActiveCount())
	tree.SetActive(w1.ID, false)
	assert.Equal(t, 4, tree.ActiveCount())
}

func TestTreeDepth(t *testing.T) {
	tree := NewAgentTree(0, zap.NewNop())
	assert.Equal(t, 0, tree.TreeDepth())

	master := tree.AddAgent("master", types.AuthorityMaster, types.AutonomyFull, "", nil)
	assert.Equal(t, 0, tree.TreeDepth())

	sup := tree.AddAgent("sup", types.AuthoritySupervisor, types.AutonomyHigh, master.ID, nil)
	tree.AddAgent("worker", types.AuthorityWorker, types.AutonomyMedium, sup.ID, nil)
	assert.Equal(t, 2, tree.TreeDepth())
}

func TestRestructure(t *testing.T) {
	tree, _, sup1, sup2, w1, _ := buildSimpleTree(t)
	require.True(t, tree.Restructure(w1.ID, sup2.ID))

	assert.Equal(t, sup2.ID, w1.ParentID)
	assert.Contains(t, sup2.ChildrenIDs, w1.ID)
	assert.NotContains(t, sup1.ChildrenIDs, w1.ID)
}

func TestRestructureRejectsCycle(t *testing.T) {
	tree, master, sup1, _, w1, _ := buildSimpleTree(t)
	// Moving master under its own grandchild would create a cycle.
	assert.False(t, tree.Restructure(master.ID, w1.ID))
	assert.False(t, tree.Restructure(sup1.ID, w1.ID))
	assert.False(t, tree.Restructure(sup1.ID, sup1.ID))
}

func TestRestructureUnknownIDs(t *testing.T) {
	tree, master, _, _, _, _ := buildSimpleTree(t)
	assert.False(t, tree.Restructure("nonexistent", master.ID))
	assert.False(t, tree.Restructure(master.ID, "nonexistent"))
}
