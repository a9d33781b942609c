// Package conflict 提供 Agent 间冲突的记录与仲裁：
// 优先级/权限/共识投票/升级四种解决策略，
// 基于显式等待图的死锁环检测，以及排他资源锁。
//
// 死锁检测把等待图当作输入数据处理，检测到环是正常结果而非错误，
// 由调用方决定如何处置。资源锁是纯内存的检查-设置操作，
// 同一持有者重复加锁是幂等的。
package conflict
