// Package hierarchy 提供 Agent 层级树：有根森林、深度受限插入、
// 防环遍历与委派权限检查。
//
// 树拥有全部父子边。节点通过 ID 相互引用；删除节点时子节点被
// 重新挂接到被删节点的原父节点（无父则成为根），绝不留下悬挂边。
// 所有遍历均携带显式 visited 集合：公开 API 不可能构造出环，
// 但遍历在图被破坏时也必须保证终止。
package hierarchy
