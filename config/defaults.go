// =============================================================================
// 📦 HierFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Hierarchy:   DefaultHierarchyConfig(),
		Cluster:     DefaultClusterConfig(),
		Autonomy:    DefaultAutonomyConfig(),
		Supervision: DefaultSupervisionConfig(),
		Log:         DefaultLogConfig(),
	}
}

// DefaultHierarchyConfig 返回默认层级树配置
func DefaultHierarchyConfig() HierarchyConfig {
	return HierarchyConfig{
		MaxDepth: 5,
	}
}

// DefaultClusterConfig 返回默认集群配置
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		MaxMembers: 10,
	}
}

// DefaultAutonomyConfig 返回默认自治门控配置
func DefaultAutonomyConfig() AutonomyConfig {
	return AutonomyConfig{
		DefaultLevel: "medium",
	}
}

// DefaultSupervisionConfig 返回默认监督配置
func DefaultSupervisionConfig() SupervisionConfig {
	return SupervisionConfig{
		EscalationTimeout: 300 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}
