package delegation

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

const (
	// DefaultPriority 委派默认优先级。
	DefaultPriority = 5
	minPriority     = 1
	maxPriority     = 10
)

// Record 一条委派记录。
type Record struct {
	ID          string                 `json:"id"`
	TaskID      string                 `json:"task_id"`
	FromAgent   string                 `json:"from_agent"`
	ToAgent     string                 `json:"to_agent"`
	Priority    int                    `json:"priority"`
	Status      types.DelegationStatus `json:"status"`
	Result      string                 `json:"result,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	Deadline    time.Time              `json:"deadline,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt time.Time              `json:"completed_at,omitempty"`
}

// Subtask 任务分解产生的子任务。
type Subtask struct {
	ID          string `json:"id"`
	ParentTask  string `json:"parent_task"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// Assignment 负载分配结果：子任务到 Agent 的映射。
type Assignment struct {
	SubtaskID string `json:"subtask_id"`
	AgentID   string `json:"agent_id"`
}

// Engine 任务委派引擎。
type Engine struct {
	mu      sync.RWMutex
	history []*Record
	byID    map[string]*Record
	active  map[string]*Record

	logger *zap.Logger
}

// NewEngine 创建委派引擎。
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		byID:   make(map[string]*Record),
		active: make(map[string]*Record),
		logger: logger.With(zap.String("component", "delegation_engine")),
	}
}

// Delegate 创建一条委派记录，优先级收敛到 [1,10]。
// deadlineMinutes 大于零时设置截止时间。
func (e *Engine) Delegate(taskID, fromAgent, toAgent string, priority, deadlineMinutes int) *Record {
	if priority < minPriority {
		priority = minPriority
	}
	if priority > maxPriority {
		priority = maxPriority
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec := &Record{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		FromAgent: fromAgent,
		ToAgent:   toAgent,
		Priority:  priority,
		Status:    types.DelegationPending,
		CreatedAt: time.Now(),
	}
	if deadlineMinutes > 0 {
		rec.Deadline = rec.CreatedAt.Add(time.Duration(deadlineMinutes) * time.Minute)
	}
	e.history = append(e.history, rec)
	e.byID[rec.ID] = rec
	e.active[rec.ID] = rec

	e.logger.Info("task delegated",
		zap.String("delegation", rec.ID),
		zap.String("task", taskID),
		zap.String("from", fromAgent),
		zap.String("to", toAgent),
		zap.Int("priority", priority))
	return rec
}

// Accept 接受委派，仅允许从 pending 迁入。
func (e *Engine) Accept(delegationID string) bool {
	return e.transition(delegationID, types.DelegationAccepted, "", "",
		types.DelegationPending)
}

// Start 开始执行委派任务，允许从 pending 或 accepted 迁入。
func (e *Engine) Start(delegationID string) bool {
	return e.transition(delegationID, types.DelegationInProgress, "", "",
		types.DelegationPending, types.DelegationAccepted)
}

// Complete 完成委派并记录结果。
func (e *Engine) Complete(delegationID, result string) bool {
	return e.transition(delegationID, types.DelegationCompleted, result, "")
}

// Fail 标记委派失败并记录原因。
func (e *Engine) Fail(delegationID, reason string) bool {
	return e.transition(delegationID, types.DelegationFailed, "", reason)
}

// Escalate 将委派升级给上级处理。
func (e *Engine) Escalate(delegationID string) bool {
	return e.transition(delegationID, types.DelegationEscalated, "", "")
}

// transition 公共状态迁移：终态记录不可再变，
// from 非空时限定合法来源状态，迁入终态时移出活跃索引。
func (e *Engine) transition(delegationID string, next types.DelegationStatus, result, reason string, from ...types.DelegationStatus) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[delegationID]
	if !ok || rec.Status.Terminal() {
		return false
	}
	if len(from) > 0 {
		allowed := false
		for _, s := range from {
			if rec.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			e.logger.Debug("delegation transition rejected",
				zap.String("delegation", delegationID),
				zap.String("from", string(rec.Status)),
				zap.String("to", string(next)))
			return false
		}
	}

	rec.Status = next
	if result != "" {
		rec.Result = result
	}
	if reason != "" {
		rec.Reason = reason
	}
	if next.Terminal() {
		rec.CompletedAt = time.Now()
		delete(e.active, delegationID)
	}

	e.logger.Debug("delegation transition",
		zap.String("delegation", delegationID),
		zap.String("status", string(next)))
	return true
}

// DecomposeTask 将任务描述按词切成 count 份连续子任务。
// 最后一份吸收余下的词；词数不足时份数随之缩减，
// 不产生空子任务。Order 从 1 起。
func (e *Engine) DecomposeTask(task string, count int) []*Subtask {
	words := strings.Fields(task)
	if len(words) == 0 || count < 1 {
		return nil
	}
	if count > len(words) {
		count = len(words)
	}

	parentID := uuid.NewString()
	chunk := len(words) / count

	var subtasks []*Subtask
	for i := 0; i < count; i++ {
		start := i * chunk
		end := start + chunk
		if i == count-1 {
			end = len(words)
		}
		subtasks = append(subtasks, &Subtask{
			ID:          uuid.NewString(),
			ParentTask:  parentID,
			Description: strings.Join(words[start:end], " "),
			Order:       i + 1,
		})
	}
	return subtasks
}

// MatchCapability 按能力覆盖率为候选 Agent 打分排序。
// 分数 = 命中的必需能力数 / 必需能力总数；
// 只返回活跃且分数大于零的 Agent，按分数稳定降序。
func (e *Engine) MatchCapability(required []string, agents []*types.AgentNode) []*types.AgentNode {
	if len(required) == 0 {
		return nil
	}

	type scored struct {
		agent *types.AgentNode
		score float64
	}
	var candidates []scored
	for _, agent := range agents {
		if agent == nil || !agent.Active {
			continue
		}
		hits := 0
		for _, cap := range required {
			if agent.HasCapability(cap) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		candidates = append(candidates, scored{
			agent: agent,
			score: float64(hits) / float64(len(required)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]*types.AgentNode, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.agent)
	}
	return out
}

// DistributeWorkload 把子任务轮转分配给活跃 Agent。
// Agent 按当前负载稳定升序排队，负载最低者先领任务。
func (e *Engine) DistributeWorkload(subtasks []*Subtask, agents []*types.AgentNode) []*Assignment {
	var pool []*types.AgentNode
	for _, agent := range agents {
		if agent != nil && agent.Active {
			pool = append(pool, agent)
		}
	}
	if len(pool) == 0 || len(subtasks) == 0 {
		return nil
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Workload < pool[j].Workload
	})

	assignments := make([]*Assignment, 0, len(subtasks))
	for i, st := range subtasks {
		assignments = append(assignments, &Assignment{
			SubtaskID: st.ID,
			AgentID:   pool[i%len(pool)].ID,
		})
	}
	return assignments
}

// PropagatePriority 调整既有委派的优先级（同样收敛到 [1,10]）。
func (e *Engine) PropagatePriority(delegationID string, priority int) bool {
	if priority < minPriority {
		priority = minPriority
	}
	if priority > maxPriority {
		priority = maxPriority
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.byID[delegationID]
	if !ok {
		return false
	}
	rec.Priority = priority
	return true
}

// Delegation 按 ID 查记录。
func (e *Engine) Delegation(id string) (*Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.byID[id]
	return rec, ok
}

// AgentDelegations 返回与 agent 相关（委出或受托）的全部记录。
func (e *Engine) AgentDelegations(agentID string) []*Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*Record
	for _, rec := range e.history {
		if rec.FromAgent == agentID || rec.ToAgent == agentID {
			out = append(out, rec)
		}
	}
	return out
}

// TotalDelegations 历史委派总数。
func (e *Engine) TotalDelegations() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.history)
}

// ActiveDelegations 未进入终态的委派数。
func (e *Engine) ActiveDelegations() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}

// CompletionRate 完成率 = completed / total，无记录时为 0。
func (e *Engine) CompletionRate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.history) == 0 {
		return 0
	}
	completed := 0
	for _, rec := range e.history {
		if rec.Status == types.DelegationCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(e.history))
}
