package cluster

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/hierflow/types"
)

// DefaultMaxMembers 默认集群容量
const DefaultMaxMembers = 10

// Info 集群信息。
// LeaderID 与 MemberIDs 是对 AgentNode 的弱引用（仅存 ID）。
// HealthScore 为派生值，由 CheckHealth 按需重算。
type Info struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        types.ClusterType `json:"type"`
	LeaderID    string            `json:"leader_id,omitempty"`
	MemberIDs   []string          `json:"member_ids"`
	MaxMembers  int               `json:"max_members"`
	HealthScore float64           `json:"health_score"`
	Active      bool              `json:"active"`
}

// TransferSuggestion 负载转移建议（仅建议，不执行）。
type TransferSuggestion struct {
	FromAgent    string  `json:"from_agent"`
	ToAgent      string  `json:"to_agent"`
	FromWorkload float64 `json:"from_workload"`
	ToWorkload   float64 `json:"to_workload"`
	Reason       string  `json:"reason"`
}

// InterClusterNote 跨集群通信记录。
type InterClusterNote struct {
	FromCluster string    `json:"from_cluster"`
	ToCluster   string    `json:"to_cluster"`
	FromLeader  string    `json:"from_leader,omitempty"`
	ToLeader    string    `json:"to_leader,omitempty"`
	Content     string    `json:"content"`
	SentAt      time.Time `json:"sent_at"`
}

// Registry 集群注册表。
type Registry struct {
	mu       sync.RWMutex
	clusters map[string]*Info
	// agentCluster 维护 agent -> cluster 的唯一归属
	agentCluster map[string]string
	notes        []InterClusterNote

	logger *zap.Logger
}

// NewRegistry 创建集群注册表。
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		clusters:     make(map[string]*Info),
		agentCluster: make(map[string]string),
		logger:       logger.With(zap.String("component", "cluster_registry")),
	}
}

// CreateCluster 创建集群。maxMembers <= 0 时使用 DefaultMaxMembers。
func (r *Registry) CreateCluster(name string, clusterType types.ClusterType, maxMembers int) *Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	if maxMembers <= 0 {
		maxMembers = DefaultMaxMembers
	}
	info := &Info{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        clusterType,
		MemberIDs:   []string{},
		MaxMembers:  maxMembers,
		HealthScore: 1.0,
		Active:      true,
	}
	r.clusters[info.ID] = info

	r.logger.Info("cluster created",
		zap.String("cluster", info.ID),
		zap.String("name", name),
		zap.String("type", string(clusterType)))
	return info
}

// DestroyCluster 销毁集群并释放全部成员归属，未知 ID 返回 false。
func (r *Registry) DestroyCluster(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.clusters[id]
	if !ok {
		r.logger.Warn("destroy: cluster not found", zap.String("cluster", id))
		return false
	}
	for _, member := range info.MemberIDs {
		delete(r.agentCluster, member)
	}
	delete(r.clusters, id)

	r.logger.Info("cluster destroyed", zap.String("cluster", id))
	return true
}

// AssignAgent 将 Agent 分配到集群。
// 集群已满时拒绝；Agent 已属于其他集群时先自动摘除；
// 重复分配到同一集群是幂等的成功。asLeader 同时设为负责人。
func (r *Registry) AssignAgent(agentID, clusterID string, asLeader bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.clusters[clusterID]
	if !ok {
		r.logger.Warn("assign: cluster not found", zap.String("cluster", clusterID))
		return false
	}

	current, hasCurrent := r.agentCluster[agentID]
	if hasCurrent && current == clusterID {
		if asLeader {
			info.LeaderID = agentID
		}
		return true
	}

	// 容量校验先于摘除：拒绝的迁移不得动摇原有归属。
	if len(info.MemberIDs) >= info.MaxMembers {
		r.logger.Warn("assign rejected: cluster full",
			zap.String("cluster", clusterID),
			zap.Int("max_members", info.MaxMembers))
		return false
	}
	if hasCurrent {
		r.detachLocked(agentID, current)
	}

	info.MemberIDs = append(info.MemberIDs, agentID)
	r.agentCluster[agentID] = clusterID
	if asLeader {
		info.LeaderID = agentID
	}

	r.logger.Info("agent assigned to cluster",
		zap.String("agent", agentID),
		zap.String("cluster", clusterID),
		zap.Bool("as_leader", asLeader))
	return true
}

// RemoveAgent 将 Agent 从其集群摘除，无归属时返回 false。
func (r *Registry) RemoveAgent(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	clusterID, ok := r.agentCluster[agentID]
	if !ok {
		return false
	}
	r.detachLocked(agentID, clusterID)
	return true
}

// detachLocked 从集群摘除成员，调用方必须持锁。
func (r *Registry) detachLocked(agentID, clusterID string) {
	info, ok := r.clusters[clusterID]
	if !ok {
		delete(r.agentCluster, agentID)
		return
	}
	for i, member := range info.MemberIDs {
		if member == agentID {
			info.MemberIDs = append(info.MemberIDs[:i], info.MemberIDs[i+1:]...)
			break
		}
	}
	if info.LeaderID == agentID {
		info.LeaderID = ""
	}
	delete(r.agentCluster, agentID)
}

// Cluster 按 ID 查集群。
func (r *Registry) Cluster(id string) (*Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.clusters[id]
	return info, ok
}

// AgentCluster 返回 Agent 所属集群。
func (r *Registry) AgentCluster(agentID string) (*Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clusterID, ok := r.agentCluster[agentID]
	if !ok {
		return nil, false
	}
	info, ok := r.clusters[clusterID]
	return info, ok
}

// Members 返回集群成员 ID 列表。
func (r *Registry) Members(clusterID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.clusters[clusterID]
	if !ok {
		return nil
	}
	return append([]string(nil), info.MemberIDs...)
}

// ListClusters 列出集群；typeFilter 非空时按类型过滤。
func (r *Registry) ListClusters(typeFilter types.ClusterType) []*Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Info
	for _, info := range r.clusters {
		if typeFilter != "" && info.Type != typeFilter {
			continue
		}
		out = append(out, info)
	}
	return out
}

// ClusterCount 集群总数。
func (r *Registry) ClusterCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clusters)
}

// CheckHealth 按需重算集群健康分并写回。
//
// 从 1.0 起扣分：无成员 -0.5；成员少于 2 或无负责人 -0.2；
// 平均负载 > 0.9 扣 0.2（> 0.7 扣 0.1）；负载方差 > 0.1 扣 0.1。
// 最终夹取到 [0,1]。未知集群返回 -1。
func (r *Registry) CheckHealth(clusterID string, workloads map[string]float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.clusters[clusterID]
	if !ok {
		r.logger.Warn("health: cluster not found", zap.String("cluster", clusterID))
		return -1
	}

	score := 1.0
	if len(info.MemberIDs) == 0 {
		score -= 0.5
	}
	if len(info.MemberIDs) < 2 || info.LeaderID == "" {
		score -= 0.2
	}

	if len(info.MemberIDs) > 0 {
		sum := 0.0
		for _, member := range info.MemberIDs {
			sum += workloads[member]
		}
		mean := sum / float64(len(info.MemberIDs))
		switch {
		case mean > 0.9:
			score -= 0.2
		case mean > 0.7:
			score -= 0.1
		}

		variance := 0.0
		for _, member := range info.MemberIDs {
			d := workloads[member] - mean
			variance += d * d
		}
		variance /= float64(len(info.MemberIDs))
		if variance > 0.1 {
			score -= 0.1
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	info.HealthScore = score
	return score
}

// BalanceLoad 生成负载转移建议：
// 每个负载 > 0.8 的成员与每个负载 < 0.3 的成员配对。
func (r *Registry) BalanceLoad(clusterID string, workloads map[string]float64) []TransferSuggestion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.clusters[clusterID]
	if !ok {
		return nil
	}

	var overloaded, underloaded []string
	for _, member := range info.MemberIDs {
		switch load := workloads[member]; {
		case load > 0.8:
			overloaded = append(overloaded, member)
		case load < 0.3:
			underloaded = append(underloaded, member)
		}
	}

	var suggestions []TransferSuggestion
	for _, over := range overloaded {
		for _, under := range underloaded {
			suggestions = append(suggestions, TransferSuggestion{
				FromAgent:    over,
				ToAgent:      under,
				FromWorkload: workloads[over],
				ToWorkload:   workloads[under],
				Reason:       "workload imbalance within cluster",
			})
		}
	}
	return suggestions
}

// SendInterCluster 记录一次集群间通信（负责人到负责人），
// 未知集群返回 false。
func (r *Registry) SendInterCluster(fromID, toID, content string) (InterClusterNote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, ok := r.clusters[fromID]
	if !ok {
		return InterClusterNote{}, false
	}
	to, ok := r.clusters[toID]
	if !ok {
		return InterClusterNote{}, false
	}

	note := InterClusterNote{
		FromCluster: fromID,
		ToCluster:   toID,
		FromLeader:  from.LeaderID,
		ToLeader:    to.LeaderID,
		Content:     content,
		SentAt:      time.Now(),
	}
	r.notes = append(r.notes, note)

	r.logger.Info("inter-cluster message recorded",
		zap.String("from", fromID),
		zap.String("to", toID))
	return note, true
}

// InterClusterNotes 返回全部跨集群通信记录。
func (r *Registry) InterClusterNotes() []InterClusterNote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]InterClusterNote(nil), r.notes...)
}
