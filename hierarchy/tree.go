package hierarchy

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

// DefaultMaxDepth 默认最大层级深度
const DefaultMaxDepth = 5

// AgentTree 管理 Agent 的父子图、权限等级与遍历查询。
type AgentTree struct {
	mu       sync.RWMutex
	agents   map[string]*types.AgentNode
	rootID   string
	maxDepth int

	logger *zap.Logger
}

// NewAgentTree 创建层级树。maxDepth <= 0 时使用 DefaultMaxDepth。
func NewAgentTree(maxDepth int, logger *zap.Logger) *AgentTree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentTree{
		agents:   make(map[string]*types.AgentNode),
		maxDepth: maxDepth,
		logger:   logger.With(zap.String("component", "agent_tree")),
	}
}

// AddAgent 新增 Agent。
//
// parentID 非空且存在时挂接为其子节点；若父节点深度已达上限，
// 节点仍被创建但不挂接（记录日志，软限制而非错误）。
// 第一个无父节点成为根。
func (t *AgentTree) AddAgent(
	name string,
	authority types.AuthorityLevel,
	autonomy types.AutonomyLevel,
	parentID string,
	capabilities []string,
) *types.AgentNode {
	t.mu.Lock()
	defer t.mu.Unlock()

	node := &types.AgentNode{
		ID:           uuid.NewString(),
		Name:         name,
		Authority:    authority,
		Autonomy:     autonomy,
		Capabilities: append([]string(nil), capabilities...),
		Active:       true,
	}
	t.agents[node.ID] = node

	if parentID != "" {
		parent, ok := t.agents[parentID]
		switch {
		case !ok:
			t.logger.Warn("parent not found, agent left unlinked",
				zap.String("agent", node.ID),
				zap.String("parent", parentID))
		case t.depthLocked(parentID) >= t.maxDepth:
			t.logger.Warn("max depth reached, agent left unlinked",
				zap.String("agent", node.ID),
				zap.String("parent", parentID),
				zap.Int("max_depth", t.maxDepth))
		default:
			node.ParentID = parentID
			parent.ChildrenIDs = append(parent.ChildrenIDs, node.ID)
		}
	}

	if node.ParentID == "" && t.rootID == "" {
		t.rootID = node.ID
	}

	t.logger.Info("agent added",
		zap.String("agent", node.ID),
		zap.String("name", name),
		zap.String("authority", string(authority)))
	return node
}

// RemoveAgent 删除 Agent，未知 ID 返回 false。
//
// 子节点被重新挂接到被删节点的原父节点；无父则成为根。
// 重新挂接后不重新校验深度上限（与参考行为保持兼容）。
func (t *AgentTree) RemoveAgent(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.agents[id]
	if !ok {
		t.logger.Warn("remove: agent not found", zap.String("agent", id))
		return false
	}

	// 从父节点的子列表摘除
	if parent, ok := t.agents[node.ParentID]; ok {
		parent.ChildrenIDs = removeID(parent.ChildrenIDs, id)
	}

	// 子节点挂接到祖父（或成为根）
	for _, childID := range node.ChildrenIDs {
		child, ok := t.agents[childID]
		if !ok {
			continue
		}
		child.ParentID = node.ParentID
		if parent, ok := t.agents[node.ParentID]; ok {
			parent.ChildrenIDs = append(parent.ChildrenIDs, childID)
		}
	}

	delete(t.agents, id)
	if t.rootID == id {
		t.rootID = ""
	}

	t.logger.Info("agent removed", zap.String("agent", id))
	return true
}

// Agent 按 ID 查节点。
func (t *AgentTree) Agent(id string) (*types.AgentNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.agents[id]
	return node, ok
}

// Root 返回根节点。
func (t *AgentTree) Root() (*types.AgentNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.agents[t.rootID]
	return node, ok
}

// Parent 返回父节点，根或未知 ID 返回 false。
func (t *AgentTree) Parent(id string) (*types.AgentNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.agents[id]
	if !ok || node.ParentID == "" {
		return nil, false
	}
	parent, ok := t.agents[node.ParentID]
	return parent, ok
}

// Children 返回直接子节点（插入顺序）。
func (t *AgentTree) Children(id string) []*types.AgentNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.agents[id]
	if !ok {
		return nil
	}
	children := make([]*types.AgentNode, 0, len(node.ChildrenIDs))
	for _, childID := range node.ChildrenIDs {
		if child, ok := t.agents[childID]; ok {
			children = append(children, child)
		}
	}
	return children
}

// Ancestors 自下而上返回全部祖先，携带 visited 防环。
func (t *AgentTree) Ancestors(id string) []*types.AgentNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ancestors []*types.AgentNode
	visited := map[string]bool{id: true}
	node, ok := t.agents[id]
	for ok && node.ParentID != "" {
		if visited[node.ParentID] {
			t.logger.Warn("cycle detected during ancestor walk",
				zap.String("agent", node.ParentID))
			break
		}
		visited[node.ParentID] = true
		node, ok = t.agents[node.ParentID]
		if ok {
			ancestors = append(ancestors, node)
		}
	}
	return ancestors
}

// Descendants 广度优先返回全部后代，携带 visited 防环。
func (t *AgentTree) Descendants(id string) []*types.AgentNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	root, ok := t.agents[id]
	if !ok {
		return nil
	}

	var descendants []*types.AgentNode
	visited := map[string]bool{id: true}
	queue := append([]string(nil), root.ChildrenIDs...)
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		if visited[currentID] {
			continue
		}
		visited[currentID] = true
		node, ok := t.agents[currentID]
		if !ok {
			continue
		}
		descendants = append(descendants, node)
		queue = append(queue, node.ChildrenIDs...)
	}
	return descendants
}

// ReportingChain 自下而上返回汇报链（祖先 ID 列表）。
func (t *AgentTree) ReportingChain(id string) []string {
	ancestors := t.Ancestors(id)
	chain := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		chain = append(chain, a.ID)
	}
	return chain
}

// CanDelegate 检查 from 是否可向 to 委派：
// 权限等级严格更高，且目标处于活跃状态。
func (t *AgentTree) CanDelegate(fromID, toID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	from, ok := t.agents[fromID]
	if !ok {
		return false
	}
	to, ok := t.agents[toID]
	if !ok || !to.Active {
		return false
	}
	return types.AuthorityRank(from.Authority) > types.AuthorityRank(to.Authority)
}

// FindByCapability 线性扫描具备指定能力的活跃节点。
// 树的规模预期是几十到几百个节点，线性扫描足够。
func (t *AgentTree) FindByCapability(capability string) []*types.AgentNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matched []*types.AgentNode
	for _, node := range t.agents {
		if node.Active && node.HasCapability(capability) {
			matched = append(matched, node)
		}
	}
	return matched
}

// SetAuthority 调整权限等级，未知 ID 返回 false。
func (t *AgentTree) SetAuthority(id string, level types.AuthorityLevel) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	node, ok := t.agents[id]
	if !ok {
		return false
	}
	node.Authority = level
	return true
}

// SetAutonomy 调整自治等级，未知 ID 返回 false。
func (t *AgentTree) SetAutonomy(id string, level types.AutonomyLevel) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	node, ok := t.agents[id]
	if !ok {
		return false
	}
	node.Autonomy = level
	return true
}

// SetWorkload 更新负载（夹取到 [0,1]），未知 ID 返回 false。
func (t *AgentTree) SetWorkload(id string, workload float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	node, ok := t.agents[id]
	if !ok {
		return false
	}
	if workload < 0 {
		workload = 0
	}
	if workload > 1 {
		workload = 1
	}
	node.Workload = workload
	return true
}

// SetActive 更新活跃标记，未知 ID 返回 false。
func (t *AgentTree) SetActive(id string, active bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	node, ok := t.agents[id]
	if !ok {
		return false
	}
	node.Active = active
	return true
}

// Restructure 将节点挂接到新父节点下。
// 旧父子列表、新父子列表与节点的父指针在同一临界区内更新。
// 不允许挂到自身或自己的后代（会成环），也不允许超过深度上限。
func (t *AgentTree) Restructure(id, newParentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.agents[id]
	if !ok {
		return false
	}
	newParent, ok := t.agents[newParentID]
	if !ok || id == newParentID {
		return false
	}

	// 新父不能是自己的后代
	visited := map[string]bool{}
	cursor := newParent
	for cursor != nil && cursor.ParentID != "" && !visited[cursor.ID] {
		visited[cursor.ID] = true
		if cursor.ParentID == id {
			t.logger.Warn("restructure rejected: would create cycle",
				zap.String("agent", id),
				zap.String("new_parent", newParentID))
			return false
		}
		cursor = t.agents[cursor.ParentID]
	}

	if t.depthLocked(newParentID) >= t.maxDepth {
		t.logger.Warn("restructure rejected: max depth reached",
			zap.String("agent", id),
			zap.String("new_parent", newParentID))
		return false
	}

	if oldParent, ok := t.agents[node.ParentID]; ok {
		oldParent.ChildrenIDs = removeID(oldParent.ChildrenIDs, id)
	}
	newParent.ChildrenIDs = append(newParent.ChildrenIDs, id)
	node.ParentID = newParentID

	t.logger.Info("agent restructured",
		zap.String("agent", id),
		zap.String("new_parent", newParentID))
	return true
}

// AllAgents 返回全部节点。
func (t *AgentTree) AllAgents() []*types.AgentNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	agents := make([]*types.AgentNode, 0, len(t.agents))
	for _, node := range t.agents {
		agents = append(agents, node)
	}
	return agents
}

// AgentCount 节点总数。
func (t *AgentTree) AgentCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.agents)
}

// ActiveCount 活跃节点数。
func (t *AgentTree) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, node := range t.agents {
		if node.Active {
			count++
		}
	}
	return count
}

// Depth 返回节点到根的深度（根为 0），未知 ID 返回 -1。
func (t *AgentTree) Depth(id string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.agents[id]; !ok {
		return -1
	}
	return t.depthLocked(id)
}

// MaxDepth 配置的深度上限。
func (t *AgentTree) MaxDepth() int {
	return t.maxDepth
}

// TreeDepth 返回当前最深节点的深度（根为 0），空树返回 0。
func (t *AgentTree) TreeDepth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	deepest := 0
	for id := range t.agents {
		if d := t.depthLocked(id); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// depthLocked 计算深度，调用方必须持锁。携带 visited 保证终止。
func (t *AgentTree) depthLocked(id string) int {
	depth := 0
	visited := map[string]bool{id: true}
	node, ok := t.agents[id]
	for ok && node.ParentID != "" {
		if visited[node.ParentID] {
			break
		}
		visited[node.ParentID] = true
		node, ok = t.agents[node.ParentID]
		if ok {
			depth++
		}
	}
	return depth
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
