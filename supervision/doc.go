// Package supervision 实现监督监控器。
//
// # 概述
//
// 监控器记录 Agent 的事件流、任务进度与性能样本，
// 并据此判断是否需要介入或升级：error/critical 事件即时
// 标记需介入；停滞任务与连续失败触发升级建议。
package supervision
