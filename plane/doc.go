// Package plane 实现层级控制面编排器。
//
// # 概述
//
// ControlPlane 将层级树、集群、自治门控、指令总线、冲突仲裁、
// 委派引擎、监督与报告八个子系统组合为一个入口，
// 提供 Agent 安装、任务委派、动作许可检查、冲突上报、
// 指令分发、快照与树形视图等高层操作。
// 各子系统可通过访问器单独取用。
package plane
