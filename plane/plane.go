package plane

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/autonomy"
	"github.com/BaSui01/hierflow/cluster"
	"github.com/BaSui01/hierflow/command"
	"github.com/BaSui01/hierflow/conflict"
	"github.com/BaSui01/hierflow/delegation"
	"github.com/BaSui01/hierflow/hierarchy"
	"github.com/BaSui01/hierflow/internal/metrics"
	"github.com/BaSui01/hierflow/reporting"
	"github.com/BaSui01/hierflow/supervision"
	"github.com/BaSui01/hierflow/types"
)

// Options 控制面初始化参数。
type Options struct {
	MaxDepth          int
	DefaultAutonomy   types.AutonomyLevel
	EscalationTimeout time.Duration
	Metrics           *metrics.Collector
	Logger            *zap.Logger
}

// ControlPlane 层级控制面。
type ControlPlane struct {
	tree        *hierarchy.AgentTree
	clusters    *cluster.Registry
	gate        *autonomy.Gate
	bus         *command.Bus
	arbiter     *conflict.Arbiter
	delegations *delegation.Engine
	monitor     *supervision.Monitor
	reports     *reporting.Aggregator

	metrics *metrics.Collector
	logger  *zap.Logger
}

// New 创建控制面。零值字段使用各子系统默认值。
func New(opts Options) *ControlPlane {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultAutonomy == "" {
		opts.DefaultAutonomy = types.AutonomyMedium
	}

	cp := &ControlPlane{
		tree:        hierarchy.NewAgentTree(opts.MaxDepth, logger),
		clusters:    cluster.NewRegistry(logger),
		gate:        autonomy.NewGate(opts.DefaultAutonomy, logger),
		bus:         command.NewBus(logger),
		arbiter:     conflict.NewArbiter(logger),
		delegations: delegation.NewEngine(logger),
		monitor:     supervision.NewMonitor(opts.EscalationTimeout, logger),
		reports:     reporting.NewAggregator(logger),
		metrics:     opts.Metrics,
		logger:      logger.With(zap.String("component", "control_plane")),
	}

	cp.logger.Info("control plane initialized",
		zap.Int("max_depth", cp.tree.MaxDepth()),
		zap.String("default_autonomy", string(opts.DefaultAutonomy)))
	return cp
}

// SetupAgent 安装一个 Agent：加入层级树、可选集群归属并登记自治级别。
func (cp *ControlPlane) SetupAgent(
	name string,
	authority types.AuthorityLevel,
	autonomyLevel types.AutonomyLevel,
	parentID, clusterID string,
	capabilities []string,
) *types.AgentNode {
	agent := cp.tree.AddAgent(name, authority, autonomyLevel, parentID, capabilities)

	if clusterID != "" {
		if cp.clusters.AssignAgent(agent.ID, clusterID, false) {
			agent.ClusterID = clusterID
		}
	}

	cp.gate.SetAutonomy(agent.ID, autonomyLevel)

	if cp.metrics != nil {
		cp.metrics.RecordAgentAdded(string(authority))
		cp.metrics.SetActiveAgents(cp.tree.ActiveCount())
		cp.metrics.SetHierarchyDepth(cp.tree.TreeDepth())
	}

	cp.logger.Info("agent set up",
		zap.String("agent", agent.ID),
		zap.String("name", name),
		zap.String("authority", string(authority)),
		zap.String("cluster", clusterID))
	return agent
}

// DelegateResult 任务委派结果。
type DelegateResult struct {
	Success      bool   `json:"success"`
	Reason       string `json:"reason,omitempty"`
	DelegationID string `json:"delegation_id,omitempty"`
	ToAgent      string `json:"to_agent,omitempty"`
	ToName       string `json:"to_name,omitempty"`
}

// DelegateTask 将任务委派给 from 的某个下级：
// 指定能力时按能力匹配取最优，否则取负载最低者；
// 目标还需通过树的委派权限检查。成功后同步发送一条指令。
func (cp *ControlPlane) DelegateTask(
	fromAgentID, taskID string,
	requiredCapabilities []string,
	priority, deadlineMinutes int,
) DelegateResult {
	children := cp.tree.Children(fromAgentID)
	if len(children) == 0 {
		return DelegateResult{Reason: "no subordinate agents"}
	}

	var target *types.AgentNode
	if len(requiredCapabilities) > 0 {
		matched := cp.delegations.MatchCapability(requiredCapabilities, children)
		if len(matched) == 0 {
			return DelegateResult{Reason: "no capable agent found"}
		}
		target = matched[0]
	} else {
		target = children[0]
		for _, child := range children[1:] {
			if child.Workload < target.Workload {
				target = child
			}
		}
	}

	if !cp.tree.CanDelegate(fromAgentID, target.ID) {
		return DelegateResult{Reason: "delegation not permitted"}
	}

	rec := cp.delegations.Delegate(taskID, fromAgentID, target.ID, priority, deadlineMinutes)
	cp.bus.SendDirective(fromAgentID, []string{target.ID},
		fmt.Sprintf("task delegated: %s", taskID), priority)

	if cp.metrics != nil {
		cp.metrics.RecordDelegation(string(rec.Status))
		cp.metrics.SetActiveDelegations(cp.delegations.ActiveDelegations())
		cp.metrics.RecordCommand(string(types.CommandDirective))
	}

	return DelegateResult{
		Success:      true,
		DelegationID: rec.ID,
		ToAgent:      target.ID,
		ToName:       target.Name,
	}
}

// ActionCheck 动作许可检查结果。
type ActionCheck struct {
	AgentID         string `json:"agent_id"`
	Action          string `json:"action"`
	CanAct          bool   `json:"can_act"`
	NeedsPermission bool   `json:"needs_permission"`
	ShouldReport    bool   `json:"should_report"`
}

// CheckAction 检查 agent 是否可独立执行某动作。
func (cp *ControlPlane) CheckAction(agentID, action string) ActionCheck {
	canAct := cp.gate.CanActIndependently(agentID, action)
	return ActionCheck{
		AgentID:         agentID,
		Action:          action,
		CanAct:          canAct,
		NeedsPermission: !canAct,
		ShouldReport:    cp.gate.ShouldReport(agentID, action),
	}
}

// ConflictResult 冲突上报结果。
type ConflictResult struct {
	ConflictID string             `json:"conflict_id"`
	Type       types.ConflictType `json:"type"`
	Resolved   bool               `json:"resolved"`
	Winner     string             `json:"winner,omitempty"`
}

// ReportConflict 上报冲突；给出优先级表时立即按优先级裁决。
func (cp *ControlPlane) ReportConflict(
	conflictType types.ConflictType,
	agents []string,
	resource, description string,
	agentPriorities map[string]int,
) ConflictResult {
	rec := cp.arbiter.ReportConflict(conflictType, agents, resource, description)

	winner := ""
	if len(agentPriorities) > 0 {
		winner, _ = cp.arbiter.ResolveByPriority(rec.ID, agentPriorities)
	}

	if cp.metrics != nil {
		cp.metrics.RecordConflict(string(conflictType))
		cp.metrics.SetActiveConflicts(cp.arbiter.ActiveConflicts())
	}

	return ConflictResult{
		ConflictID: rec.ID,
		Type:       conflictType,
		Resolved:   rec.Resolved,
		Winner:     winner,
	}
}

// CommandResult 指令发送结果。
type CommandResult struct {
	CommandID string            `json:"command_id"`
	Type      types.CommandType `json:"type"`
	Targets   int               `json:"targets"`
}

// SendCommand 按类型分发指令，未知类型按 directive 处理。
func (cp *ControlPlane) SendCommand(
	fromAgent, content string,
	toAgents []string,
	commandType types.CommandType,
	priority int,
) CommandResult {
	var msg *command.Message
	switch commandType {
	case types.CommandBroadcast:
		msg = cp.bus.SendBroadcast(fromAgent, content, toAgents, priority)
	case types.CommandEmergency:
		msg = cp.bus.SendEmergency(fromAgent, content, toAgents)
	case types.CommandFeedback:
		target := ""
		if len(toAgents) > 0 {
			target = toAgents[0]
		}
		msg = cp.bus.SendFeedback(fromAgent, target, content)
	default:
		msg = cp.bus.SendDirective(fromAgent, toAgents, content, priority)
	}

	if cp.metrics != nil {
		cp.metrics.RecordCommand(string(msg.Type))
		cp.metrics.SetPendingCommands(cp.bus.PendingCount())
	}

	return CommandResult{
		CommandID: msg.ID,
		Type:      msg.Type,
		Targets:   len(msg.ToAgents),
	}
}

// Restructure 将 agent 挂到新的父节点下（保持无环与深度约束）。
func (cp *ControlPlane) Restructure(agentID, newParentID string) bool {
	ok := cp.tree.Restructure(agentID, newParentID)
	if ok && cp.metrics != nil {
		cp.metrics.RecordRestructure()
		cp.metrics.SetHierarchyDepth(cp.tree.TreeDepth())
	}
	return ok
}

// ReportEvent 登记一条监督事件并更新指标。
func (cp *ControlPlane) ReportEvent(agentID, eventType, description string, severity types.Severity) *supervision.Event {
	ev := cp.monitor.RecordEvent(agentID, eventType, description, severity)
	if cp.metrics != nil {
		cp.metrics.RecordSupervisionEvent(string(ev.Severity), ev.RequiresIntervention)
	}
	return ev
}

// Snapshot 返回控制面当前聚合视图。
func (cp *ControlPlane) Snapshot() types.HierarchySnapshot {
	agents := cp.tree.AllAgents()

	active := 0
	workloadSum := 0.0
	for _, a := range agents {
		if a.Active {
			active++
			workloadSum += a.Workload
		}
	}
	avgWorkload := 0.0
	if active > 0 {
		avgWorkload = workloadSum / float64(active)
	}

	health := 1.0
	if n := cp.arbiter.ActiveConflicts(); n > 0 {
		health -= 0.1 * math.Min(float64(n), 5)
	}
	if n := cp.monitor.InterventionCount(); n > 0 {
		health -= 0.05 * math.Min(float64(n), 5)
	}

	return types.HierarchySnapshot{
		TotalAgents:        len(agents),
		ActiveAgents:       active,
		TotalClusters:      cp.clusters.ClusterCount(),
		PendingDelegations: cp.delegations.ActiveDelegations(),
		ActiveConflicts:    cp.arbiter.ActiveConflicts(),
		AvgWorkload:        math.Round(avgWorkload*1000) / 1000,
		HealthScore:        math.Max(0, math.Min(1, health)),
	}
}

// WorkloadSuggestion 负载优化建议。
type WorkloadSuggestion struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
	To       string `json:"to"`
	ToName   string `json:"to_name"`
	Reason   string `json:"reason"`
}

// OptimizeWorkload 找出同集群内过载与空闲 Agent 的转移配对。
func (cp *ControlPlane) OptimizeWorkload() []WorkloadSuggestion {
	agents := cp.tree.AllAgents()

	var overloaded, underloaded []*types.AgentNode
	for _, a := range agents {
		if !a.Active {
			continue
		}
		switch {
		case a.Workload > 0.8:
			overloaded = append(overloaded, a)
		case a.Workload < 0.3:
			underloaded = append(underloaded, a)
		}
	}

	var suggestions []WorkloadSuggestion
	for _, over := range overloaded {
		for _, under := range underloaded {
			if over.ClusterID != under.ClusterID {
				continue
			}
			suggestions = append(suggestions, WorkloadSuggestion{
				Type:     "transfer",
				From:     over.ID,
				FromName: over.Name,
				To:       under.ID,
				ToName:   under.Name,
				Reason:   fmt.Sprintf("load balance: %.1f -> %.1f", over.Workload, under.Workload),
			})
		}
	}
	return suggestions
}

// 子系统访问器。

// Tree 层级树。
func (cp *ControlPlane) Tree() *hierarchy.AgentTree { return cp.tree }

// Clusters 集群注册表。
func (cp *ControlPlane) Clusters() *cluster.Registry { return cp.clusters }

// Autonomy 自治门控。
func (cp *ControlPlane) Autonomy() *autonomy.Gate { return cp.gate }

// Commands 指令总线。
func (cp *ControlPlane) Commands() *command.Bus { return cp.bus }

// Conflicts 冲突仲裁器。
func (cp *ControlPlane) Conflicts() *conflict.Arbiter { return cp.arbiter }

// Delegations 委派引擎。
func (cp *ControlPlane) Delegations() *delegation.Engine { return cp.delegations }

// Supervision 监督监控器。
func (cp *ControlPlane) Supervision() *supervision.Monitor { return cp.monitor }

// Reporting 报告聚合器。
func (cp *ControlPlane) Reporting() *reporting.Aggregator { return cp.reports }
