package command

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

const (
	// DefaultPriority 普通指令默认优先级
	DefaultPriority = 5
	// BroadcastPriority 广播默认优先级
	BroadcastPriority = 7
	// EmergencyPriority 紧急命令固定优先级
	EmergencyPriority = 10
	// FeedbackPriority 反馈默认优先级
	FeedbackPriority = 3
)

// Message 一条命令消息。
// AcknowledgedBy 单调增长；当其覆盖 ToAgents 时消息视为完全确认。
type Message struct {
	ID             string            `json:"id"`
	Type           types.CommandType `json:"type"`
	FromAgent      string            `json:"from_agent"`
	ToAgents       []string          `json:"to_agents"`
	Content        string            `json:"content"`
	Priority       int               `json:"priority"` // 1..10
	AcknowledgedBy map[string]bool   `json:"acknowledged_by"`
	SentAt         time.Time         `json:"sent_at"`
}

// FullyAcknowledged 报告是否全部目标均已确认。
func (m *Message) FullyAcknowledged() bool {
	for _, target := range m.ToAgents {
		if !m.AcknowledgedBy[target] {
			return false
		}
	}
	return true
}

// Bus 命令总线。
type Bus struct {
	mu      sync.RWMutex
	history []*Message
	byID    map[string]*Message
	pending map[string]*Message
	inboxes map[string][]*Message

	emergencyCount int

	logger *zap.Logger
}

// NewBus 创建命令总线。
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		byID:    make(map[string]*Message),
		pending: make(map[string]*Message),
		inboxes: make(map[string][]*Message),
		logger:  logger.With(zap.String("component", "command_bus")),
	}
}

// SendDirective 发送定向指令。priority <= 0 使用默认值。
func (b *Bus) SendDirective(fromAgent string, toAgents []string, content string, priority int) *Message {
	if priority <= 0 {
		priority = DefaultPriority
	}
	return b.deliver(types.CommandDirective, fromAgent, toAgents, content, priority)
}

// SendBroadcast 发送广播。priority <= 0 使用广播默认值。
func (b *Bus) SendBroadcast(fromAgent, content string, toAgents []string, priority int) *Message {
	if priority <= 0 {
		priority = BroadcastPriority
	}
	return b.deliver(types.CommandBroadcast, fromAgent, toAgents, content, priority)
}

// SendTargeted 发送单目标指令。
func (b *Bus) SendTargeted(fromAgent, toAgent, content string, priority int) *Message {
	if priority <= 0 {
		priority = DefaultPriority
	}
	return b.deliver(types.CommandTargeted, fromAgent, []string{toAgent}, content, priority)
}

// SendEmergency 发送紧急命令，优先级强制为 EmergencyPriority。
func (b *Bus) SendEmergency(fromAgent, content string, toAgents []string) *Message {
	msg := b.deliver(types.CommandEmergency, fromAgent, toAgents, content, EmergencyPriority)
	b.logger.Warn("emergency command sent",
		zap.String("command", msg.ID),
		zap.String("from", fromAgent),
		zap.Int("targets", len(toAgents)))
	return msg
}

// SendFeedback 发送向上反馈。
func (b *Bus) SendFeedback(fromAgent, toAgent, content string) *Message {
	return b.deliver(types.CommandFeedback, fromAgent, []string{toAgent}, content, FeedbackPriority)
}

// deliver 构造消息并原子投递：历史 + 待确认索引 + 各目标收件箱。
func (b *Bus) deliver(cmdType types.CommandType, fromAgent string, toAgents []string, content string, priority int) *Message {
	if priority > 10 {
		priority = 10
	}
	msg := &Message{
		ID:             uuid.NewString(),
		Type:           cmdType,
		FromAgent:      fromAgent,
		ToAgents:       append([]string(nil), toAgents...),
		Content:        content,
		Priority:       priority,
		AcknowledgedBy: make(map[string]bool),
		SentAt:         time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, msg)
	b.byID[msg.ID] = msg
	b.pending[msg.ID] = msg
	for _, target := range msg.ToAgents {
		b.inboxes[target] = append(b.inboxes[target], msg)
	}
	if cmdType == types.CommandEmergency {
		b.emergencyCount++
	}

	b.logger.Debug("command delivered",
		zap.String("command", msg.ID),
		zap.String("type", string(cmdType)),
		zap.Int("priority", priority),
		zap.Int("targets", len(msg.ToAgents)))
	return msg
}

// Inbox 返回 Agent 的收件箱，按优先级降序；
// 同优先级保持投递顺序（稳定排序）。
func (b *Bus) Inbox(agentID string) []*Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	inbox := append([]*Message(nil), b.inboxes[agentID]...)
	sort.SliceStable(inbox, func(i, j int) bool {
		return inbox[i].Priority > inbox[j].Priority
	})
	return inbox
}

// Acknowledge 记录一次确认，重复确认是幂等的。
// 全部目标确认后消息移出待确认索引（历史中保留）。
// 未知命令返回 false。
func (b *Bus) Acknowledge(commandID, agentID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg, ok := b.byID[commandID]
	if !ok {
		b.logger.Warn("acknowledge: command not found", zap.String("command", commandID))
		return false
	}
	msg.AcknowledgedBy[agentID] = true
	if msg.FullyAcknowledged() {
		delete(b.pending, commandID)
	}
	return true
}

// IsFullyAcknowledged 报告命令是否已被全部目标确认。
// 基于历史判定，待确认索引清除后仍然有效。
func (b *Bus) IsFullyAcknowledged(commandID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg, ok := b.byID[commandID]
	if !ok {
		return false
	}
	return msg.FullyAcknowledged()
}

// Command 按 ID 查消息。
func (b *Bus) Command(id string) (*Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg, ok := b.byID[id]
	return msg, ok
}

// PendingCount 待确认消息数。
func (b *Bus) PendingCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pending)
}

// TotalCommands 历史消息总数。
func (b *Bus) TotalCommands() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.history)
}

// EmergencyCount 紧急命令总数。
func (b *Bus) EmergencyCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.emergencyCount
}
