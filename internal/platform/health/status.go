package health

import (
	"sync"

	"go.uber.org/zap"
)

// State 是检查器眼中缓存后端的健康状态
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// tracker 负责线程安全地维护健康状态机。
type tracker struct {
	mu             sync.RWMutex
	state          State
	lastKnownRunID string
	// lost 在发现重启后置位，直到一次恢复成功才清除
	lost bool
	log  *zap.Logger
}

func (t *tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// assess 把一次探测结果输入状态机。
// 返回是否需要执行恢复，以及自上次成功恢复以来后端是否丢过数据。
func (t *tracker) assess(connected bool, runID string) (needsRecovery, lost bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	restarted := connected && t.lastKnownRunID != "" && t.lastKnownRunID != runID
	if restarted {
		t.lost = true
	}

	switch t.state {
	case StateHealthy:
		if !connected {
			t.state = StateDegraded
			t.log.Warn("cache backend unreachable", zap.String("state", t.state.String()))
		} else if restarted {
			t.state = StateRebuilding
			needsRecovery = true
			t.log.Warn("cache backend restarted",
				zap.String("from", t.lastKnownRunID), zap.String("to", runID), zap.String("state", t.state.String()))
		}
	case StateDegraded:
		if connected {
			// 积压的失效操作写回后端之前，不能重新信任它
			t.state = StateRebuilding
			needsRecovery = true
			t.log.Info("cache backend reachable again", zap.Bool("restarted", t.lost), zap.String("state", t.state.String()))
		}
	case StateRebuilding:
		if !connected {
			t.state = StateDegraded
			t.log.Warn("cache backend lost during recovery", zap.String("state", t.state.String()))
		} else {
			needsRecovery = true
			t.log.Info("retrying cache recovery")
		}
	}

	if connected {
		t.lastKnownRunID = runID
	}
	return needsRecovery, t.lost
}

// complete 记录一次恢复的结果。
// 如果恢复期间run_id又变了，这次恢复作废。
func (t *tracker) complete(success bool, runIDAfter string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateRebuilding {
		return
	}
	if success && t.lastKnownRunID != runIDAfter {
		t.log.Warn("cache backend restarted during recovery",
			zap.String("from", t.lastKnownRunID), zap.String("to", runIDAfter))
		t.lastKnownRunID = runIDAfter
		t.lost = true
		return
	}
	if !success {
		t.log.Warn("cache recovery failed, will retry")
		return
	}
	t.state = StateHealthy
	t.lost = false
	t.log.Info("cache recovered", zap.String("state", t.state.String()))
}
