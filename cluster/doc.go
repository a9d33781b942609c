// Package cluster 提供独立于层级树的 Agent 集群分组：
// 容量受限的成员管理、集群负责人、派生健康分与负载均衡建议。
//
// 每个 Agent 至多属于一个集群；跨集群移动会先从原集群摘除。
// 健康分与均衡建议均为按需计算的派生值，不构成权威状态，
// 均衡建议只是建议，本包不会代为执行任何迁移。
package cluster
