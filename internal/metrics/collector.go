package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 层级指标
	agentsTotal       *prometheus.CounterVec
	activeAgents      prometheus.Gauge
	hierarchyDepth    prometheus.Gauge
	restructuresTotal prometheus.Counter

	// 委派指标
	delegationsTotal  *prometheus.CounterVec
	activeDelegations prometheus.Gauge

	// 指挥指标
	commandsTotal   *prometheus.CounterVec
	pendingCommands prometheus.Gauge

	// 冲突指标
	conflictsTotal  *prometheus.CounterVec
	activeConflicts prometheus.Gauge

	// 监督指标
	supervisionEventsTotal *prometheus.CounterVec
	interventionsTotal     prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 层级指标
	c.agentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agents_total",
			Help:      "Total number of agents added to the hierarchy",
		},
		[]string{"authority"},
	)

	c.activeAgents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_agents",
			Help:      "Number of currently active agents",
		},
	)

	c.hierarchyDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hierarchy_depth",
			Help:      "Current maximum depth of the agent tree",
		},
	)

	c.restructuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restructures_total",
			Help:      "Total number of hierarchy restructures",
		},
	)

	// 委派指标
	c.delegationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegations_total",
			Help:      "Total number of task delegations",
		},
		[]string{"status"},
	)

	c.activeDelegations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_delegations",
			Help:      "Number of delegations not yet in a terminal state",
		},
	)

	// 指挥指标
	c.commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of commands sent",
		},
		[]string{"type"},
	)

	c.pendingCommands = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_commands",
			Help:      "Number of commands awaiting acknowledgement",
		},
	)

	// 冲突指标
	c.conflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Total number of reported conflicts",
		},
		[]string{"type"},
	)

	c.activeConflicts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conflicts",
			Help:      "Number of unresolved conflicts",
		},
	)

	// 监督指标
	c.supervisionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervision_events_total",
			Help:      "Total number of supervision events",
		},
		[]string{"severity"},
	)

	c.interventionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interventions_total",
			Help:      "Total number of events requiring intervention",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🌲 层级指标记录
// =============================================================================

// RecordAgentAdded 记录 Agent 加入层级
func (c *Collector) RecordAgentAdded(authority string) {
	c.agentsTotal.WithLabelValues(authority).Inc()
}

// SetActiveAgents 记录当前活跃 Agent 数
func (c *Collector) SetActiveAgents(count int) {
	c.activeAgents.Set(float64(count))
}

// SetHierarchyDepth 记录层级树当前深度
func (c *Collector) SetHierarchyDepth(depth int) {
	c.hierarchyDepth.Set(float64(depth))
}

// RecordRestructure 记录一次层级重构
func (c *Collector) RecordRestructure() {
	c.restructuresTotal.Inc()
}

// =============================================================================
// 📨 委派与指挥指标记录
// =============================================================================

// RecordDelegation 记录委派状态变化
func (c *Collector) RecordDelegation(status string) {
	c.delegationsTotal.WithLabelValues(status).Inc()
}

// SetActiveDelegations 记录活跃委派数
func (c *Collector) SetActiveDelegations(count int) {
	c.activeDelegations.Set(float64(count))
}

// RecordCommand 记录指令发送
func (c *Collector) RecordCommand(commandType string) {
	c.commandsTotal.WithLabelValues(commandType).Inc()
}

// SetPendingCommands 记录待确认指令数
func (c *Collector) SetPendingCommands(count int) {
	c.pendingCommands.Set(float64(count))
}

// =============================================================================
// ⚔️ 冲突与监督指标记录
// =============================================================================

// RecordConflict 记录冲突上报
func (c *Collector) RecordConflict(conflictType string) {
	c.conflictsTotal.WithLabelValues(conflictType).Inc()
}

// SetActiveConflicts 记录未解决冲突数
func (c *Collector) SetActiveConflicts(count int) {
	c.activeConflicts.Set(float64(count))
}

// RecordSupervisionEvent 记录监督事件
func (c *Collector) RecordSupervisionEvent(severity string, requiresIntervention bool) {
	c.supervisionEventsTotal.WithLabelValues(severity).Inc()
	if requiresIntervention {
		c.interventionsTotal.Inc()
	}
}
