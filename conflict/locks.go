package conflict

import "go.uber.org/zap"

// LockResource 尝试以 agentID 锁定资源。
// 资源空闲或已由同一 agent 持有时返回 true（持有者重入为幂等）。
func (a *Arbiter) LockResource(resource, agentID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	holder, held := a.locks[resource]
	if held && holder != agentID {
		a.logger.Debug("resource lock denied",
			zap.String("resource", resource),
			zap.String("requester", agentID),
			zap.String("holder", holder))
		return false
	}
	a.locks[resource] = agentID
	return true
}

// UnlockResource 释放资源锁，仅持有者可释放。
func (a *Arbiter) UnlockResource(resource, agentID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	holder, held := a.locks[resource]
	if !held || holder != agentID {
		return false
	}
	delete(a.locks, resource)
	return true
}

// ResourceOwner 返回资源当前持有者，未锁定返回空串。
func (a *Arbiter) ResourceOwner(resource string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.locks[resource]
}

// LockedResources 返回当前被锁定的资源数量。
func (a *Arbiter) LockedResources() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.locks)
}
