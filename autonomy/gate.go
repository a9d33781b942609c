package autonomy

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

const (
	// historyCap 每个 Agent 保留的动作记录上限（最旧的先丢弃）
	historyCap = 50
	// adjustWindow 调整自治等级时考察的最近动作数
	adjustWindow = 10
	// adjustMinSamples 调整所需的最少样本数
	adjustMinSamples = 5
	// raiseThreshold 升级所需成功率
	raiseThreshold = 0.9
	// lowerThreshold 低于该成功率则降级
	lowerThreshold = 0.5
)

// actionRisk 动作 -> 风险层级常量表。未列出的动作按 RiskMedium。
var actionRisk = map[string]types.RiskTier{
	"read":        types.RiskLow,
	"analyze":     types.RiskLow,
	"log":         types.RiskLow,
	"cache_clear": types.RiskLow,

	"notify": types.RiskMedium,
	"update": types.RiskMedium,
	"create": types.RiskMedium,

	"delete":  types.RiskHigh,
	"deploy":  types.RiskHigh,
	"restart": types.RiskHigh,

	"budget_change":     types.RiskCritical,
	"database_modify":   types.RiskCritical,
	"production_change": types.RiskCritical,
}

// tierMinRank 风险层级 -> 独立行动所需的最低自治等级数值。
// critical 只有 full 可以独立执行。
var tierMinRank = map[types.RiskTier]int{
	types.RiskLow:      types.AutonomyRank(types.AutonomyLow),
	types.RiskMedium:   types.AutonomyRank(types.AutonomyMedium),
	types.RiskHigh:     types.AutonomyRank(types.AutonomyHigh),
	types.RiskCritical: types.AutonomyRank(types.AutonomyFull),
}

// ActionRecord 一次动作的结果记录。
type ActionRecord struct {
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Gate 自治门控。
type Gate struct {
	mu           sync.RWMutex
	levels       map[string]types.AutonomyLevel
	history      map[string][]ActionRecord
	totalActions int
	defaultLevel types.AutonomyLevel

	logger *zap.Logger
}

// NewGate 创建自治门控。defaultLevel 为空时默认 medium。
func NewGate(defaultLevel types.AutonomyLevel, logger *zap.Logger) *Gate {
	if defaultLevel == "" {
		defaultLevel = types.AutonomyMedium
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		levels:       make(map[string]types.AutonomyLevel),
		history:      make(map[string][]ActionRecord),
		defaultLevel: defaultLevel,
		logger:       logger.With(zap.String("component", "autonomy_gate")),
	}
}

// RiskOf 返回动作的风险层级。
func RiskOf(action string) types.RiskTier {
	if tier, ok := actionRisk[action]; ok {
		return tier
	}
	return types.RiskMedium
}

// SetAutonomy 设置 Agent 的自治等级。
func (g *Gate) SetAutonomy(agentID string, level types.AutonomyLevel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.levels[agentID] = level
}

// Autonomy 返回 Agent 的自治等级，未管理的 Agent 返回默认等级。
func (g *Gate) Autonomy(agentID string) types.AutonomyLevel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if level, ok := g.levels[agentID]; ok {
		return level
	}
	return g.defaultLevel
}

// ManagedAgents 受管 Agent 数量。
func (g *Gate) ManagedAgents() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.levels)
}

// CanActIndependently 判定 Agent 是否可独立执行动作。
// full 永远可以，none 永远不可以，其余要求自治等级不低于风险层级门槛。
func (g *Gate) CanActIndependently(agentID, action string) bool {
	level := g.Autonomy(agentID)
	switch level {
	case types.AutonomyFull:
		return true
	case types.AutonomyNone:
		return false
	}
	return types.AutonomyRank(level) >= tierMinRank[RiskOf(action)]
}

// ShouldAskPermission 判定 Agent 执行动作前是否需要请求许可。
func (g *Gate) ShouldAskPermission(agentID, action string) bool {
	return !g.CanActIndependently(agentID, action)
}

// ShouldReport 判定动作执行后是否需要向上汇报。
// none 全部汇报；full 仅汇报 critical；其余汇报 medium 及以上。
func (g *Gate) ShouldReport(agentID, action string) bool {
	level := g.Autonomy(agentID)
	tier := RiskOf(action)
	switch level {
	case types.AutonomyNone:
		return true
	case types.AutonomyFull:
		return tier == types.RiskCritical
	}
	return tier != types.RiskLow
}

// RecordAction 记录一次动作结果。每个 Agent 最多保留 historyCap 条。
func (g *Gate) RecordAction(agentID, action string, success bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	records := append(g.history[agentID], ActionRecord{
		Action:     action,
		Success:    success,
		RecordedAt: time.Now(),
	})
	if len(records) > historyCap {
		records = records[len(records)-historyCap:]
	}
	g.history[agentID] = records
	g.totalActions++
}

// AdjustAutonomy 根据最近 adjustWindow 条记录调整自治等级并返回新等级。
// 样本不足 adjustMinSamples 条时不调整。
// 成功率 >= raiseThreshold 升一级，< lowerThreshold 降一级。
func (g *Gate) AdjustAutonomy(agentID string) types.AutonomyLevel {
	g.mu.Lock()
	defer g.mu.Unlock()

	level, ok := g.levels[agentID]
	if !ok {
		level = g.defaultLevel
	}

	records := g.history[agentID]
	if len(records) > adjustWindow {
		records = records[len(records)-adjustWindow:]
	}
	if len(records) < adjustMinSamples {
		return level
	}

	successes := 0
	for _, rec := range records {
		if rec.Success {
			successes++
		}
	}
	rate := float64(successes) / float64(len(records))

	newLevel := level
	switch {
	case rate >= raiseThreshold:
		newLevel = types.RaiseAutonomy(level)
	case rate < lowerThreshold:
		newLevel = types.LowerAutonomy(level)
	}

	if newLevel != level {
		g.levels[agentID] = newLevel
		g.logger.Info("autonomy adjusted",
			zap.String("agent", agentID),
			zap.String("from", string(level)),
			zap.String("to", string(newLevel)),
			zap.Float64("success_rate", rate))
	}
	return newLevel
}

// SuccessRate 返回 Agent 全部记录的成功率，无记录时为 0。
func (g *Gate) SuccessRate(agentID string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	records := g.history[agentID]
	if len(records) == 0 {
		return 0
	}
	successes := 0
	for _, rec := range records {
		if rec.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(records))
}

// ActionHistory 返回 Agent 的动作记录副本。
func (g *Gate) ActionHistory(agentID string) []ActionRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]ActionRecord(nil), g.history[agentID]...)
}

// TotalActions 全部 Agent 的动作记录总数（含已被丢弃的旧记录）。
func (g *Gate) TotalActions() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.totalActions
}
