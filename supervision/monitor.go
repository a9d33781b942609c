package supervision

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

// DefaultEscalationTimeout 任务停滞多久后建议升级。
const DefaultEscalationTimeout = 300 * time.Second

const (
	escalationErrorCount = 3
	stalledThreshold     = 0.1
)

// Event 监督事件。
type Event struct {
	ID                   string         `json:"id"`
	AgentID              string         `json:"agent_id"`
	EventType            string         `json:"event_type"`
	Description          string         `json:"description,omitempty"`
	Severity             types.Severity `json:"severity"`
	RequiresIntervention bool           `json:"requires_intervention"`
	Resolved             bool           `json:"resolved"`
	OccurredAt           time.Time      `json:"occurred_at"`
}

// ProgressEntry 某 Agent 在某任务上的最新进度。
type ProgressEntry struct {
	AgentID   string    `json:"agent_id"`
	TaskID    string    `json:"task_id"`
	Progress  float64   `json:"progress"` // 0..1
	UpdatedAt time.Time `json:"updated_at"`
}

// InterventionCheck 介入判定结果。
type InterventionCheck struct {
	AgentID           string   `json:"agent_id"`
	NeedsIntervention bool     `json:"needs_intervention"`
	Reasons           []string `json:"reasons,omitempty"`
	Recommendation    string   `json:"recommendation,omitempty"`
}

type progressKey struct {
	agentID string
	taskID  string
}

// Monitor 监督监控器。
type Monitor struct {
	mu          sync.RWMutex
	events      []*Event
	eventByID   map[string]*Event
	progress    map[progressKey]*ProgressEntry
	performance map[string][]float64

	escalationTimeout time.Duration
	logger            *zap.Logger
}

// NewMonitor 创建监督监控器。timeout 非正时使用默认值。
func NewMonitor(escalationTimeout time.Duration, logger *zap.Logger) *Monitor {
	if escalationTimeout <= 0 {
		escalationTimeout = DefaultEscalationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		eventByID:         make(map[string]*Event),
		progress:          make(map[progressKey]*ProgressEntry),
		performance:       make(map[string][]float64),
		escalationTimeout: escalationTimeout,
		logger:            logger.With(zap.String("component", "supervision_monitor")),
	}
}

// RecordEvent 记录一条监督事件。severity 为空视为 info；
// error/critical 级别自动标记为需介入。
func (m *Monitor) RecordEvent(agentID, eventType, description string, severity types.Severity) *Event {
	if severity == "" {
		severity = types.SeverityInfo
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ev := &Event{
		ID:                   uuid.NewString(),
		AgentID:              agentID,
		EventType:            eventType,
		Description:          description,
		Severity:             severity,
		RequiresIntervention: severity.RequiresIntervention(),
		OccurredAt:           time.Now(),
	}
	m.events = append(m.events, ev)
	m.eventByID[ev.ID] = ev

	if ev.RequiresIntervention {
		m.logger.Warn("supervision event requires intervention",
			zap.String("agent", agentID),
			zap.String("event_type", eventType),
			zap.String("severity", string(severity)))
	}
	return ev
}

// TrackProgress 更新 (agent, task) 的进度，收敛到 [0,1]。
func (m *Monitor) TrackProgress(agentID, taskID string, progress float64) *ProgressEntry {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &ProgressEntry{
		AgentID:   agentID,
		TaskID:    taskID,
		Progress:  progress,
		UpdatedAt: time.Now(),
	}
	m.progress[progressKey{agentID, taskID}] = entry
	return entry
}

// Progress 返回 agent 的进度条目。taskID 非空时只取该任务。
func (m *Monitor) Progress(agentID, taskID string) []*ProgressEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ProgressEntry
	for key, entry := range m.progress {
		if key.agentID != agentID {
			continue
		}
		if taskID != "" && key.taskID != taskID {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// CheckIntervention 判定 agent 当前是否需要介入：
// 存在未解决的需介入事件，或有进度低于阈值的停滞任务。
func (m *Monitor) CheckIntervention(agentID string) *InterventionCheck {
	m.mu.RLock()
	defer m.mu.RUnlock()

	check := &InterventionCheck{AgentID: agentID}

	criticals, errors := 0, 0
	for _, ev := range m.events {
		if ev.AgentID != agentID || !ev.RequiresIntervention || ev.Resolved {
			continue
		}
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("unresolved %s event: %s", ev.Severity, ev.EventType))
		switch ev.Severity {
		case types.SeverityCritical:
			criticals++
		case types.SeverityError:
			errors++
		}
	}
	stalled := 0
	for key, entry := range m.progress {
		if key.agentID == agentID && entry.Progress < stalledThreshold {
			stalled++
			check.Reasons = append(check.Reasons,
				fmt.Sprintf("task %s stalled at %.0f%%", key.taskID, entry.Progress*100))
		}
	}

	if len(check.Reasons) > 0 {
		check.NeedsIntervention = true
		var parts []string
		if stalled > 0 {
			parts = append(parts, fmt.Sprintf("reassign %d stalled task(s)", stalled))
		}
		if criticals > 0 {
			parts = append(parts, fmt.Sprintf("review %d critical event(s) immediately", criticals))
		}
		if errors > 0 {
			parts = append(parts, fmt.Sprintf("investigate %d error event(s)", errors))
		}
		check.Recommendation = strings.Join(parts, "; ")
	}
	return check
}

// ResolveEvent 将事件标记为已解决。
func (m *Monitor) ResolveEvent(eventID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.eventByID[eventID]
	if !ok || ev.Resolved {
		return false
	}
	ev.Resolved = true
	return true
}

// ShouldEscalate 判定是否应升级：连续错误达到阈值、
// 停滞时长超过升级超时，或该 agent 记录过 critical 事件
// （critical 一经记录即触发升级，与是否已解决无关）。
func (m *Monitor) ShouldEscalate(agentID string, errorCount int, stallTime time.Duration) bool {
	if errorCount >= escalationErrorCount {
		return true
	}
	if stallTime > m.escalationTimeout {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ev := range m.events {
		if ev.AgentID == agentID && ev.Severity == types.SeverityCritical {
			return true
		}
	}
	return false
}

// RecordPerformance 记录性能样本并返回当前均值。
func (m *Monitor) RecordPerformance(agentID string, score float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.performance[agentID] = append(m.performance[agentID], score)
	return mean(m.performance[agentID])
}

// AvgPerformance 返回 agent 的性能均值，无样本为 0。
func (m *Monitor) AvgPerformance(agentID string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return mean(m.performance[agentID])
}

// Events 按 agent 与严重级别过滤事件，空参数表示不过滤。
func (m *Monitor) Events(agentID string, severity types.Severity) []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Event
	for _, ev := range m.events {
		if agentID != "" && ev.AgentID != agentID {
			continue
		}
		if severity != "" && ev.Severity != severity {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EventCount 事件总数。
func (m *Monitor) EventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// InterventionCount 需介入的事件总数（含已解决）。
func (m *Monitor) InterventionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, ev := range m.events {
		if ev.RequiresIntervention {
			count++
		}
	}
	return count
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
