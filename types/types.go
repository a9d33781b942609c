package types

// AuthorityLevel 权限等级
type AuthorityLevel string

const (
	AuthorityMaster     AuthorityLevel = "master"     // 最高决策权
	AuthoritySupervisor AuthorityLevel = "supervisor" // 监督者
	AuthorityLead       AuthorityLevel = "lead"       // 小组负责人
	AuthorityWorker     AuthorityLevel = "worker"     // 执行者
	AuthorityObserver   AuthorityLevel = "observer"   // 只读观察者
)

var authorityRanks = map[AuthorityLevel]int{
	AuthorityMaster:     5,
	AuthoritySupervisor: 4,
	AuthorityLead:       3,
	AuthorityWorker:     2,
	AuthorityObserver:   1,
}

// AuthorityRank 返回权限等级的数值，未知等级为 0。
func AuthorityRank(level AuthorityLevel) int {
	return authorityRanks[level]
}

// AutonomyLevel 自治等级
type AutonomyLevel string

const (
	AutonomyFull   AutonomyLevel = "full"   // 完全自治
	AutonomyHigh   AutonomyLevel = "high"   // 高度自治
	AutonomyMedium AutonomyLevel = "medium" // 中等自治
	AutonomyLow    AutonomyLevel = "low"    // 受限自治
	AutonomyNone   AutonomyLevel = "none"   // 任何动作均需许可
)

var autonomyRanks = map[AutonomyLevel]int{
	AutonomyFull:   5,
	AutonomyHigh:   4,
	AutonomyMedium: 3,
	AutonomyLow:    2,
	AutonomyNone:   1,
}

var autonomyOrder = []AutonomyLevel{
	AutonomyNone, AutonomyLow, AutonomyMedium, AutonomyHigh, AutonomyFull,
}

// AutonomyRank 返回自治等级的数值，未知等级为 0。
func AutonomyRank(level AutonomyLevel) int {
	return autonomyRanks[level]
}

// RaiseAutonomy 返回高一级的自治等级，full 封顶。
func RaiseAutonomy(level AutonomyLevel) AutonomyLevel {
	rank := AutonomyRank(level)
	if rank == 0 || rank >= len(autonomyOrder) {
		return level
	}
	return autonomyOrder[rank] // rank 是 1-based，rank 即下一级下标
}

// LowerAutonomy 返回低一级的自治等级，none 保底。
func LowerAutonomy(level AutonomyLevel) AutonomyLevel {
	rank := AutonomyRank(level)
	if rank <= 1 {
		return level
	}
	return autonomyOrder[rank-2]
}

// ClusterType 集群类型
type ClusterType string

const (
	ClusterBusiness      ClusterType = "business"
	ClusterTechnical     ClusterType = "technical"
	ClusterCommunication ClusterType = "communication"
	ClusterAnalysis      ClusterType = "analysis"
	ClusterOperations    ClusterType = "operations"
)

// CommandType 命令类型
type CommandType string

const (
	CommandDirective CommandType = "directive" // 定向指令
	CommandBroadcast CommandType = "broadcast" // 广播
	CommandTargeted  CommandType = "targeted"  // 单目标指令
	CommandEmergency CommandType = "emergency" // 紧急命令（优先级固定为 10）
	CommandFeedback  CommandType = "feedback"  // 向上反馈
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictResource  ConflictType = "resource"
	ConflictPriority  ConflictType = "priority"
	ConflictDecision  ConflictType = "decision"
	ConflictDeadlock  ConflictType = "deadlock"
	ConflictAuthority ConflictType = "authority"
)

// ResolutionStrategy 冲突解决策略
type ResolutionStrategy string

const (
	ResolutionPriority   ResolutionStrategy = "priority_based"
	ResolutionAuthority  ResolutionStrategy = "authority_based"
	ResolutionConsensus  ResolutionStrategy = "consensus"
	ResolutionEscalation ResolutionStrategy = "escalation"
)

// DelegationStatus 委派状态
type DelegationStatus string

const (
	DelegationPending    DelegationStatus = "pending"
	DelegationAccepted   DelegationStatus = "accepted"
	DelegationInProgress DelegationStatus = "in_progress"
	DelegationCompleted  DelegationStatus = "completed"
	DelegationFailed     DelegationStatus = "failed"
	DelegationEscalated  DelegationStatus = "escalated"
)

// Terminal 报告该状态是否为终态。
func (s DelegationStatus) Terminal() bool {
	switch s {
	case DelegationCompleted, DelegationFailed, DelegationEscalated:
		return true
	}
	return false
}

// ReportType 报告类型
type ReportType string

const (
	ReportStatus    ReportType = "status"
	ReportProgress  ReportType = "progress"
	ReportException ReportType = "exception"
	ReportDaily     ReportType = "daily"
	ReportWeekly    ReportType = "weekly"
	ReportCustom    ReportType = "custom"
)

// Severity 事件严重级别
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// RequiresIntervention 报告该级别是否需要人为/上级介入。
func (s Severity) RequiresIntervention() bool {
	return s == SeverityError || s == SeverityCritical
}

// RiskTier 动作风险分级
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// AgentNode 层级树节点。
// 父子边构成有根森林；ParentID 是弱引用（树管理归属，不管理内存），
// ChildrenIDs 为有序子节点序列，由树维护。
type AgentNode struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Authority    AuthorityLevel `json:"authority"`
	Autonomy     AutonomyLevel  `json:"autonomy"`
	ParentID     string         `json:"parent_id,omitempty"`
	ChildrenIDs  []string       `json:"children_ids,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
	Workload     float64        `json:"workload"` // 0..1
	Active       bool           `json:"active"`
	ClusterID    string         `json:"cluster_id,omitempty"`
}

// HasCapability 报告节点是否具备指定能力。
func (n *AgentNode) HasCapability(capability string) bool {
	for _, c := range n.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// HierarchySnapshot 聚合只读视图。
// HealthScore 为派生值：从 1.0 起按活跃冲突与监督介入扣分，夹取到 [0,1]。
type HierarchySnapshot struct {
	TotalAgents        int     `json:"total_agents"`
	ActiveAgents       int     `json:"active_agents"`
	TotalClusters      int     `json:"total_clusters"`
	PendingDelegations int     `json:"pending_delegations"`
	ActiveConflicts    int     `json:"active_conflicts"`
	AvgWorkload        float64 `json:"avg_workload"`
	HealthScore        float64 `json:"health_score"`
}

// TreeView 递归树形可视化结构。
type TreeView struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Authority AuthorityLevel `json:"authority"`
	Autonomy  AutonomyLevel  `json:"autonomy"`
	Workload  float64        `json:"workload"`
	Active    bool           `json:"active"`
	Children  []*TreeView    `json:"children"`
}
