package conflict

import (
	"sort"

	"go.uber.org/zap"
)

// DetectDeadlock 在等待图（agent -> 其等待的 agent 列表）中找出全部环。
//
// 对每个未访问节点做带路径栈的 DFS：当 DFS 再次碰到当前路径上的
// 节点时，从该节点首次出现处到当前节点（含）的子路径即为一个环。
// 一次调用返回全部相互独立的环；无环返回空。
// 起点按键排序遍历，保证结果的确定性。
func (a *Arbiter) DetectDeadlock(waitGraph map[string][]string) [][]string {
	starts := make([]string, 0, len(waitGraph))
	for node := range waitGraph {
		starts = append(starts, node)
	}
	sort.Strings(starts)

	visited := make(map[string]bool)
	var cycles [][]string

	var path []string
	onPath := make(map[string]int) // node -> index in path

	var dfs func(node string)
	dfs = func(node string) {
		if idx, ok := onPath[node]; ok {
			cycle := append([]string(nil), path[idx:]...)
			cycles = append(cycles, cycle)
			return
		}
		if visited[node] {
			return
		}
		visited[node] = true
		onPath[node] = len(path)
		path = append(path, node)

		for _, next := range waitGraph[node] {
			dfs(next)
		}

		path = path[:len(path)-1]
		delete(onPath, node)
	}

	for _, start := range starts {
		if !visited[start] {
			dfs(start)
		}
	}

	if len(cycles) > 0 {
		a.logger.Warn("deadlock cycles detected", zap.Int("cycles", len(cycles)))
	}
	return cycles
}
