// Package reporting 实现层级报告聚合器。
//
// # 概述
//
// 聚合器收集状态、进度与异常三类上行报告，
// 支持按 Agent 汇总状态、按任务卷积进度（同任务以最新为准），
// 并能生成日报、周报与自定义时间窗报表。
package reporting
