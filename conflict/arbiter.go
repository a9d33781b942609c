package conflict

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

// Record 一条冲突记录。
// 解决后移出活跃索引但保留在历史中。
type Record struct {
	ID             string                   `json:"id"`
	Type           types.ConflictType       `json:"type"`
	AgentsInvolved []string                 `json:"agents_involved"`
	Resource       string                   `json:"resource,omitempty"`
	Description    string                   `json:"description,omitempty"`
	Resolution     types.ResolutionStrategy `json:"resolution,omitempty"`
	Resolved       bool                     `json:"resolved"`
	Winner         string                   `json:"winner,omitempty"`
	ReportedAt     time.Time                `json:"reported_at"`
	ResolvedAt     time.Time                `json:"resolved_at,omitempty"`
}

// Arbiter 冲突仲裁器。
type Arbiter struct {
	mu      sync.RWMutex
	history []*Record
	byID    map[string]*Record
	active  map[string]*Record
	locks   map[string]string // resource -> holder

	logger *zap.Logger
}

// NewArbiter 创建冲突仲裁器。
func NewArbiter(logger *zap.Logger) *Arbiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arbiter{
		byID:   make(map[string]*Record),
		active: make(map[string]*Record),
		locks:  make(map[string]string),
		logger: logger.With(zap.String("component", "conflict_arbiter")),
	}
}

// ReportConflict 记录并激活一条冲突。
func (a *Arbiter) ReportConflict(conflictType types.ConflictType, agents []string, resource, description string) *Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := &Record{
		ID:             uuid.NewString(),
		Type:           conflictType,
		AgentsInvolved: append([]string(nil), agents...),
		Resource:       resource,
		Description:    description,
		ReportedAt:     time.Now(),
	}
	a.history = append(a.history, rec)
	a.byID[rec.ID] = rec
	a.active[rec.ID] = rec

	a.logger.Info("conflict reported",
		zap.String("conflict", rec.ID),
		zap.String("type", string(conflictType)),
		zap.Strings("agents", agents),
		zap.String("resource", resource))
	return rec
}

// ResolveByPriority 选出数值优先级最高的 Agent。
// 平局时胜者是 AgentsInvolved 中先出现的那个。
// 未知或已解决的冲突返回 false。
func (a *Arbiter) ResolveByPriority(conflictID string, priorities map[string]int) (string, bool) {
	return a.resolve(conflictID, types.ResolutionPriority, func(rec *Record) string {
		winner := ""
		best := -1 << 31
		for _, agent := range rec.AgentsInvolved {
			if p, ok := priorities[agent]; ok && p > best {
				best = p
				winner = agent
			}
		}
		return winner
	})
}

// ResolveByAuthority 选出权限等级数值最高的 Agent，平局规则同上。
func (a *Arbiter) ResolveByAuthority(conflictID string, authorityRanks map[string]int) (string, bool) {
	return a.resolve(conflictID, types.ResolutionAuthority, func(rec *Record) string {
		winner := ""
		best := -1 << 31
		for _, agent := range rec.AgentsInvolved {
			if r, ok := authorityRanks[agent]; ok && r > best {
				best = r
				winner = agent
			}
		}
		return winner
	})
}

// ResolveByConsensus 对投票取众数，返回胜出的选项（不是 Agent）。
// 平局时胜者是计票过程中最先出现的选项，
// 计票按 AgentsInvolved 的顺序进行。
func (a *Arbiter) ResolveByConsensus(conflictID string, votes map[string]string) (string, bool) {
	return a.resolve(conflictID, types.ResolutionConsensus, func(rec *Record) string {
		tally := make(map[string]int)
		var order []string
		for _, agent := range rec.AgentsInvolved {
			option, ok := votes[agent]
			if !ok {
				continue
			}
			if _, seen := tally[option]; !seen {
				order = append(order, option)
			}
			tally[option]++
		}
		winner := ""
		best := 0
		for _, option := range order {
			if tally[option] > best {
				best = tally[option]
				winner = option
			}
		}
		return winner
	})
}

// EscalateConflict 将冲突标记为升级处理：已解决、无胜者。
func (a *Arbiter) EscalateConflict(conflictID string) bool {
	_, ok := a.resolve(conflictID, types.ResolutionEscalation, func(*Record) string {
		return ""
	})
	return ok
}

// resolve 公共解决路径：仅对活跃冲突生效，
// 写回结果并移出活跃索引。
func (a *Arbiter) resolve(conflictID string, strategy types.ResolutionStrategy, pick func(*Record) string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.active[conflictID]
	if !ok {
		a.logger.Warn("resolve: conflict not active", zap.String("conflict", conflictID))
		return "", false
	}

	rec.Winner = pick(rec)
	rec.Resolution = strategy
	rec.Resolved = true
	rec.ResolvedAt = time.Now()
	delete(a.active, conflictID)

	a.logger.Info("conflict resolved",
		zap.String("conflict", conflictID),
		zap.String("strategy", string(strategy)),
		zap.String("winner", rec.Winner))
	return rec.Winner, true
}

// Conflict 按 ID 查记录。
func (a *Arbiter) Conflict(id string) (*Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.byID[id]
	return rec, ok
}

// ActiveRecords 返回全部活跃冲突（报告顺序）。
func (a *Arbiter) ActiveRecords() []*Record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*Record
	for _, rec := range a.history {
		if !rec.Resolved {
			out = append(out, rec)
		}
	}
	return out
}

// ActiveConflicts 活跃冲突数。
func (a *Arbiter) ActiveConflicts() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.active)
}

// TotalConflicts 历史冲突总数。
func (a *Arbiter) TotalConflicts() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.history)
}

// ResolvedCount 已解决冲突数。
func (a *Arbiter) ResolvedCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.history) - len(a.active)
}
