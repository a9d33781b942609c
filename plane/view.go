package plane

import "github.com/BaSui01/hierflow/types"

// TreeView 构建从 agentID 起的递归树形视图；
// agentID 为空时从根开始。未知节点返回 nil。
func (cp *ControlPlane) TreeView(agentID string) *types.TreeView {
	var node *types.AgentNode
	if agentID == "" {
		root, ok := cp.tree.Root()
		if !ok {
			return nil
		}
		node = root
	} else {
		agent, ok := cp.tree.Agent(agentID)
		if !ok {
			return nil
		}
		node = agent
	}
	return cp.buildTree(node, make(map[string]bool))
}

// buildTree 携带 visited 集防御环，已访问节点不再展开。
func (cp *ControlPlane) buildTree(node *types.AgentNode, visited map[string]bool) *types.TreeView {
	visited[node.ID] = true
	view := &types.TreeView{
		ID:        node.ID,
		Name:      node.Name,
		Authority: node.Authority,
		Autonomy:  node.Autonomy,
		Workload:  node.Workload,
		Active:    node.Active,
		Children:  []*types.TreeView{},
	}
	for _, child := range cp.tree.Children(node.ID) {
		if visited[child.ID] {
			continue
		}
		view.Children = append(view.Children, cp.buildTree(child, visited))
	}
	return view
}
