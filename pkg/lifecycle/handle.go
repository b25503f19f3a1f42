package lifecycle

import (
	"context"
	"time"
)

// Handle 是后台服务持有的生命周期句柄，由Manager创建。
type Handle struct {
	ctx context.Context
	// Close 通知Manager该服务已经停止，一般在服务的Goroutine里通过defer调用。
	Close func()
}

// Ctx 返回句柄内部的ctx，Manager停机时被取消。
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

// Done 返回一个channel，Manager停机时关闭，可以放进select里监听。
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Err 返回Done关闭的原因。
func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Sleep 暂停d，如果Manager在此期间停机则提前返回错误。
// 后台循环应当用它代替time.Sleep。
func (h *Handle) Sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-h.Done():
		// 停机信号先到，立即返回
		return h.Err()
	case <-timer.C:
		return nil
	}
}
