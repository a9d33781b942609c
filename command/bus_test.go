package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

func TestSendDirective(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendDirective("master", []string{"w1", "w2"}, "run", 0)
	assert.Equal(t, types.CommandDirective, msg.Type)
	assert.Equal(t, DefaultPriority, msg.Priority)
	assert.Equal(t, 1, b.TotalCommands())
	assert.Equal(t, 1, b.PendingCount())
}

func TestSendBroadcast(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendBroadcast("master", "announcement", []string{"a1", "a2", "a3"}, 0)
	assert.Equal(t, types.CommandBroadcast, msg.Type)
	assert.Len(t, msg.ToAgents, 3)
	assert.Equal(t, BroadcastPriority, msg.Priority)
}

func TestSendTargeted(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendTargeted("sup", "worker", "do it", 0)
	assert.Equal(t, types.CommandTargeted, msg.Type)
	assert.Equal(t, []string{"worker"}, msg.ToAgents)
}

func TestSendEmergencyForcesPriority(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendEmergency("master", "STOP", []string{"a1", "a2"})
	assert.Equal(t, types.CommandEmergency, msg.Type)
	assert.Equal(t, EmergencyPriority, msg.Priority)
	assert.Equal(t, 1, b.EmergencyCount())
}

func TestSendFeedback(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendFeedback("worker", "sup", "done")
	assert.Equal(t, types.CommandFeedback, msg.Type)
	assert.Equal(t, FeedbackPriority, msg.Priority)
}

func TestPriorityClamped(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendDirective("m", []string{"w"}, "x", 99)
	assert.Equal(t, 10, msg.Priority)
}

func TestAcknowledge(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendDirective("master", []string{"w1"}, "test", 0)
	require.True(t, b.Acknowledge(msg.ID, "w1"))
	assert.True(t, msg.AcknowledgedBy["w1"])
	assert.False(t, b.Acknowledge("nonexistent", "w1"))
}

func TestAcknowledgeIdempotent(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendDirective("master", []string{"w1", "w2"}, "test", 0)
	require.True(t, b.Acknowledge(msg.ID, "w1"))
	require.True(t, b.Acknowledge(msg.ID, "w1"))
	assert.Len(t, msg.AcknowledgedBy, 1)
}

func TestFullyAcknowledged(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendDirective("master", []string{"w1", "w2"}, "test", 0)

	b.Acknowledge(msg.ID, "w1")
	assert.False(t, b.IsFullyAcknowledged(msg.ID))
	assert.Equal(t, 1, b.PendingCount())

	b.Acknowledge(msg.ID, "w2")
	assert.True(t, b.IsFullyAcknowledged(msg.ID))
	// Removed from pending, still answerable from history.
	assert.Equal(t, 0, b.PendingCount())
	assert.True(t, b.IsFullyAcknowledged(msg.ID))
}

func TestInboxSortedByPriority(t *testing.T) {
	b := NewBus(zap.NewNop())
	b.SendTargeted("master", "w1", "task 1", 3)
	b.SendTargeted("master", "w1", "task 2", 8)
	b.SendTargeted("master", "w1", "task 3", 8)

	inbox := b.Inbox("w1")
	require.Len(t, inbox, 3)
	assert.Equal(t, "task 2", inbox[0].Content)
	// Equal priorities keep delivery order.
	assert.Equal(t, "task 3", inbox[1].Content)
	assert.Equal(t, "task 1", inbox[2].Content)
}

func TestInboxEmpty(t *testing.T) {
	b := NewBus(zap.NewNop())
	assert.Empty(t, b.Inbox("nobody"))
}

func TestCommandLookup(t *testing.T) {
	b := NewBus(zap.NewNop())
	msg := b.SendTargeted("m", "w", "test", 0)
	found, ok := b.Command(msg.ID)
	require.True(t, ok)
	assert.Equal(t, msg.ID, found.ID)

	_, ok = b.Command("nonexistent")
	assert.False(t, ok)
}
