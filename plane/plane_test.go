package plane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/internal/metrics"
	"github.com/BaSui01/hierflow/types"
)

func newPlane() *ControlPlane {
	return New(Options{Logger: zap.NewNop()})
}

func TestNewControlPlane(t *testing.T) {
	cp := newPlane()

	snap := cp.Snapshot()
	assert.Zero(t, snap.TotalAgents)
	assert.Equal(t, 1.0, snap.HealthScore)
}

func TestSetupAgent(t *testing.T) {
	cp := newPlane()

	agent := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyHigh, "", "", nil)
	assert.Equal(t, "master", agent.Name)
	assert.Equal(t, 1, cp.Tree().AgentCount())
	assert.Equal(t, types.AutonomyHigh, cp.Autonomy().Autonomy(agent.ID))
}

func TestSetupAgentWithCluster(t *testing.T) {
	cp := newPlane()
	info := cp.Clusters().CreateCluster("Tech", types.ClusterTechnical, 0)

	agent := cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, "", info.ID, nil)
	assert.Equal(t, info.ID, agent.ClusterID)

	got, ok := cp.Clusters().AgentCluster(agent.ID)
	require.True(t, ok)
	assert.Equal(t, info.ID, got.ID)
}

func TestDelegateTaskByCapability(t *testing.T) {
	cp := newPlane()
	master := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	worker := cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, master.ID, "", []string{"code"})

	result := cp.DelegateTask(master.ID, "task1", []string{"code"}, 5, 0)
	require.True(t, result.Success)
	assert.Equal(t, worker.ID, result.ToAgent)
	assert.Equal(t, "worker", result.ToName)
	assert.NotEmpty(t, result.DelegationID)

	// 受托方收到定向指令
	inbox := cp.Commands().Inbox(worker.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, types.CommandDirective, inbox[0].Type)
}

func TestDelegateTaskLeastLoaded(t *testing.T) {
	cp := newPlane()
	master := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	busy := cp.SetupAgent("busy", types.AuthorityWorker, types.AutonomyMedium, master.ID, "", nil)
	idle := cp.SetupAgent("idle", types.AuthorityWorker, types.AutonomyMedium, master.ID, "", nil)
	cp.Tree().SetWorkload(busy.ID, 0.9)
	cp.Tree().SetWorkload(idle.ID, 0.1)

	result := cp.DelegateTask(master.ID, "task1", nil, 5, 0)
	require.True(t, result.Success)
	assert.Equal(t, idle.ID, result.ToAgent)
}

func TestDelegateTaskNoChildren(t *testing.T) {
	cp := newPlane()
	lone := cp.SetupAgent("lone", types.AuthorityWorker, types.AutonomyMedium, "", "", nil)

	result := cp.DelegateTask(lone.ID, "task1", nil, 5, 0)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Reason)
}

func TestDelegateTaskNoCapableAgent(t *testing.T) {
	cp := newPlane()
	master := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, master.ID, "", []string{"test"})

	result := cp.DelegateTask(master.ID, "task1", []string{"deploy"}, 5, 0)
	assert.False(t, result.Success)
}

func TestCheckAction(t *testing.T) {
	cp := newPlane()
	agent := cp.SetupAgent("w1", types.AuthorityWorker, types.AutonomyLow, "", "", nil)

	check := cp.CheckAction(agent.ID, "deploy")
	assert.False(t, check.CanAct)
	assert.True(t, check.NeedsPermission)
	assert.True(t, check.ShouldReport)

	check = cp.CheckAction(agent.ID, "read")
	assert.True(t, check.CanAct)
}

func TestReportConflictAutoResolve(t *testing.T) {
	cp := newPlane()

	result := cp.ReportConflict(types.ConflictResource, []string{"a1", "a2"}, "gpu", "",
		map[string]int{"a1": 5, "a2": 8})
	assert.True(t, result.Resolved)
	assert.Equal(t, "a2", result.Winner)

	rec, ok := cp.Conflicts().Conflict(result.ConflictID)
	require.True(t, ok)
	assert.True(t, rec.Resolved)
}

func TestReportConflictWithoutPriorities(t *testing.T) {
	cp := newPlane()

	result := cp.ReportConflict(types.ConflictDecision, []string{"a1", "a2"}, "", "", nil)
	assert.False(t, result.Resolved)
	assert.Equal(t, 1, cp.Conflicts().ActiveConflicts())
}

func TestSendCommandDispatch(t *testing.T) {
	cp := newPlane()

	result := cp.SendCommand("master", "do it", []string{"w1"}, types.CommandDirective, 5)
	assert.NotEmpty(t, result.CommandID)
	assert.Equal(t, types.CommandDirective, result.Type)

	result = cp.SendCommand("master", "announcement", []string{"a1", "a2"}, types.CommandBroadcast, 5)
	assert.Equal(t, types.CommandBroadcast, result.Type)
	assert.Equal(t, 2, result.Targets)

	result = cp.SendCommand("master", "EMERGENCY", []string{"a1"}, types.CommandEmergency, 5)
	assert.Equal(t, types.CommandEmergency, result.Type)

	cmd, ok := cp.Commands().Command(result.CommandID)
	require.True(t, ok)
	assert.Equal(t, 10, cmd.Priority)

	result = cp.SendCommand("worker", "done", []string{"sup"}, types.CommandFeedback, 5)
	assert.Equal(t, types.CommandFeedback, result.Type)

	// 未知类型按 directive 处理
	result = cp.SendCommand("master", "do it", []string{"w1"}, types.CommandType("mystery"), 5)
	assert.Equal(t, types.CommandDirective, result.Type)
}

func TestSnapshot(t *testing.T) {
	cp := newPlane()
	m := cp.SetupAgent("m", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	w := cp.SetupAgent("w", types.AuthorityWorker, types.AutonomyMedium, m.ID, "", nil)
	cp.Tree().SetWorkload(w.ID, 0.5)

	snap := cp.Snapshot()
	assert.Equal(t, 2, snap.TotalAgents)
	assert.Equal(t, 2, snap.ActiveAgents)
	assert.InDelta(t, 0.25, snap.AvgWorkload, 1e-9)
	assert.Equal(t, 1.0, snap.HealthScore)
}

func TestSnapshotHealthDegrades(t *testing.T) {
	cp := newPlane()

	cp.ReportConflict(types.ConflictResource, []string{"a", "b"}, "", "", nil)
	cp.ReportConflict(types.ConflictDecision, []string{"c", "d"}, "", "", nil)
	cp.Supervision().RecordEvent("a", "crash", "", types.SeverityCritical)

	snap := cp.Snapshot()
	assert.InDelta(t, 1.0-0.2-0.05, snap.HealthScore, 1e-9)
}

func TestTreeView(t *testing.T) {
	cp := newPlane()
	m := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, m.ID, "", nil)

	view := cp.TreeView("")
	require.NotNil(t, view)
	assert.Equal(t, "master", view.Name)
	require.Len(t, view.Children, 1)
	assert.Equal(t, "worker", view.Children[0].Name)

	assert.Nil(t, cp.TreeView("missing"))
}

func TestTreeViewTerminatesOnCorruptedLinks(t *testing.T) {
	cp := newPlane()
	m := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	w := cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, m.ID, "", nil)

	// 通过外泄指针制造环：worker 指回根节点。
	node, ok := cp.Tree().Agent(w.ID)
	require.True(t, ok)
	node.ChildrenIDs = append(node.ChildrenIDs, m.ID)

	view := cp.TreeView("")
	require.NotNil(t, view)
	require.Len(t, view.Children, 1)
	assert.Equal(t, "worker", view.Children[0].Name)
	assert.Empty(t, view.Children[0].Children)
}

func TestReportEvent(t *testing.T) {
	cp := newPlane()
	w := cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, "", "", nil)

	ev := cp.ReportEvent(w.ID, "task_failure", "build step crashed", types.SeverityCritical)
	require.NotNil(t, ev)
	assert.True(t, ev.RequiresIntervention)
	assert.Equal(t, 1, cp.Supervision().EventCount())

	check := cp.Supervision().CheckIntervention(w.ID)
	assert.True(t, check.NeedsIntervention)
}

func TestPlaneUpdatesMetrics(t *testing.T) {
	collector := metrics.NewCollector("planewiring", zap.NewNop())
	cp := New(Options{Logger: zap.NewNop(), Metrics: collector})

	m := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	s := cp.SetupAgent("sup", types.AuthoritySupervisor, types.AutonomyHigh, m.ID, "", nil)
	w := cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, s.ID, "", nil)

	cp.ReportEvent(w.ID, "stall", "no progress", types.SeverityError)
	require.True(t, cp.Restructure(w.ID, m.ID))
	assert.Equal(t, 1, cp.Tree().TreeDepth())
}

func TestRestructure(t *testing.T) {
	cp := newPlane()
	m := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	s1 := cp.SetupAgent("sup1", types.AuthoritySupervisor, types.AutonomyMedium, m.ID, "", nil)
	s2 := cp.SetupAgent("sup2", types.AuthoritySupervisor, types.AutonomyMedium, m.ID, "", nil)
	w := cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, s1.ID, "", nil)

	require.True(t, cp.Restructure(w.ID, s2.ID))
	moved, _ := cp.Tree().Agent(w.ID)
	assert.Equal(t, s2.ID, moved.ParentID)

	// 不能把祖先挂到后代下面
	assert.False(t, cp.Restructure(m.ID, w.ID))
}

func TestOptimizeWorkload(t *testing.T) {
	cp := newPlane()
	info := cp.Clusters().CreateCluster("Tech", types.ClusterTechnical, 0)
	m := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", info.ID, nil)
	w := cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, m.ID, info.ID, nil)
	cp.Tree().SetWorkload(m.ID, 0.9)
	cp.Tree().SetWorkload(w.ID, 0.1)

	suggestions := cp.OptimizeWorkload()
	require.Len(t, suggestions, 1)
	assert.Equal(t, "transfer", suggestions[0].Type)
	assert.Equal(t, m.ID, suggestions[0].From)
	assert.Equal(t, w.ID, suggestions[0].To)
}

func TestOptimizeWorkloadDifferentClusters(t *testing.T) {
	cp := newPlane()
	c1 := cp.Clusters().CreateCluster("A", types.ClusterTechnical, 0)
	c2 := cp.Clusters().CreateCluster("B", types.ClusterTechnical, 0)
	m := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", c1.ID, nil)
	w := cp.SetupAgent("worker", types.AuthorityWorker, types.AutonomyMedium, m.ID, c2.ID, nil)
	cp.Tree().SetWorkload(m.ID, 0.9)
	cp.Tree().SetWorkload(w.ID, 0.1)

	assert.Empty(t, cp.OptimizeWorkload())
}
