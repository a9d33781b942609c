// Copyright (c) HierFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 HierFlow 控制平面的全局共享类型定义。

# 概述

types 是模块最底层的公共包，不依赖任何内部包，为 hierarchy、cluster、
autonomy、command、conflict、delegation、supervision、reporting 和 plane
等上层模块提供统一的类型契约。所有跨包共享的枚举、等级表和记录结构
均定义于此，以避免循环依赖。

# 核心类型

  - AuthorityLevel / AutonomyLevel — 有序等级枚举及其数值等级表
  - ClusterType / CommandType / ConflictType — 分类枚举
  - DelegationStatus / ResolutionStrategy / ReportType / Severity — 状态与策略枚举
  - RiskTier — 动作风险分级（低/中/高/关键）
  - AgentNode — 层级树节点（身份、权限、自治、父子边、能力、负载）
  - HierarchySnapshot — 聚合只读视图（计数 + 派生健康分）
  - TreeView — 递归树形可视化结构

# 等级约定

权限等级从高到低：master > supervisor > lead > worker > observer。
自治等级从高到低：full > high > medium > low > none。
等级比较一律通过 AuthorityRank / AutonomyRank 数值表进行，
未知值等级为 0，永远低于任何已知等级。
*/
package types
