// Package autonomy 提供按动作风险分级的自治门控：
// 判定 Agent 是否可以独立行动、是否需要事后汇报，
// 并根据滚动成功率历史动态升降自治等级。
//
// 动作到风险层级的映射是写死的常量表（业务策略，测试钉死），
// 未登记的动作一律按中风险处理。
package autonomy
