package health

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/mediashelf-backend/pkg/lifecycle"
	"go.uber.org/zap"
)

const (
	CheckInterval = 5 * time.Second
	probeTimeout  = 2 * time.Second
	flushTimeout  = 10 * time.Second
)

// Probe 返回缓存后端当前实例的标识，后端重启后该标识会变化。
type Probe func(ctx context.Context) (string, error)

// Recoverer 是故障恢复后需要检查器修复的缓存层。
type Recoverer interface {
	// Forget 丢弃积压的失效操作，后端重启后它们已无意义
	Forget()
	// Flush 重试积压的失效操作
	Flush(ctx context.Context) error
}

// Checker 监视缓存后端，并根据其健康状态决定是否允许使用缓存。
type Checker struct {
	tracker
	probe Probe
	cache Recoverer
}

func NewChecker(probe Probe, cache Recoverer, log *zap.Logger) *Checker {
	c := &Checker{probe: probe, cache: cache}
	c.tracker.log = log.Named("health")
	return c
}

// Init 在启动时执行一次，记录后端当前的run_id。必须在Run之前成功。
func (c *Checker) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	runID, err := c.probe(ctx)
	if err != nil {
		return fmt.Errorf("read initial cache run id: %w", err)
	}
	c.mu.Lock()
	c.lastKnownRunID = runID
	c.mu.Unlock()
	c.log.Info("cache backend identified", zap.String("run_id", runID))
	return nil
}

// IsHealthy 报告当前是否可以读写缓存。
func (c *Checker) IsHealthy() bool {
	return c.State() == StateHealthy
}

func (c *Checker) runID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return c.probe(ctx)
}

// PerformCheck 执行一次探测，必要时再执行一次恢复。
func (c *Checker) PerformCheck(ctx context.Context) {
	runID, err := c.runID(ctx)
	needsRecovery, lost := c.assess(err == nil, runID)
	if !needsRecovery {
		return
	}
	c.complete(c.recover(ctx, lost))
}

func (c *Checker) recover(ctx context.Context, lost bool) (bool, string) {
	// 1. 重启后的后端没有任何缓存条目，积压的失效操作可以直接丢弃
	if lost {
		c.cache.Forget()
	}

	// 2. 写回积压的失效操作
	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	err := c.cache.Flush(flushCtx)
	cancel()
	if err != nil {
		c.log.Warn("flushing deferred invalidations failed", zap.Error(err))
		return false, ""
	}

	// 3. 再次读取run_id，确认恢复期间后端没有重启
	after, err := c.runID(ctx)
	if err != nil {
		return false, ""
	}
	return true, after
}

// Run 每隔interval探测一次，直到句柄被取消。
func (c *Checker) Run(handle *lifecycle.Handle, interval time.Duration) {
	defer handle.Close()
	c.log.Info("cache health checker started", zap.Duration("interval", interval))
	for {
		if err := handle.Sleep(interval); err != nil {
			c.log.Info("cache health checker stopped")
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}
