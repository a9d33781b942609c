// Package command 提供进程内的优先级命令总线：
// 定向指令、广播、单目标、紧急与反馈五类消息，
// 按 Agent 维护收件箱并跟踪确认状态。
//
// 一次投递（写历史、写待确认索引、写全部目标收件箱）
// 在同一临界区内完成，读收件箱永远不会看到半投递的消息。
// 本包不做网络传输，轮询与消费节奏由调用方负责。
package command
