// Package delegation 实现任务委派引擎。
//
// # 概述
//
// 引擎维护委派记录的完整生命周期（pending → accepted →
// in_progress → completed/failed/escalated），并提供任务分解、
// 能力匹配与负载分配等辅助能力。所有状态驻留内存，
// 读写经 RWMutex 保护。
package delegation
