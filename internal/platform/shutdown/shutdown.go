package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/mediashelf-backend/pkg/lifecycle"
	"go.uber.org/zap"
)

const (
	httpTimeout     = 15 * time.Second
	gracefulTimeout = 30 * time.Second
	forcefulTimeout = 1 * time.Second
)

type finalizer struct {
	name string
	fn   func() error
}

// Coordinator 编排停机流程：先停HTTP，再分两阶段停后台服务，
// 最后按登记顺序释放资源。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	finalizers []finalizer
	log        *zap.Logger
}

func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, log *zap.Logger) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		log:             log.Named("shutdown"),
	}
}

// OnFinish 登记一个在所有后台服务停止后执行的释放函数。
func (c *Coordinator) OnFinish(name string, fn func() error) {
	c.finalizers = append(c.finalizers, finalizer{name: name, fn: fn})
}

// ListenForSignalsAndShutdown 阻塞直到收到SIGINT或SIGTERM，然后执行停机。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	c.log.Info("shutdown signal received", zap.String("signal", sig.String()))
	c.Shutdown(server)
}

// Shutdown 立即执行停机流程。
func (c *Coordinator) Shutdown(server *http.Server) {
	// 1. 关闭HTTP服务器，让正在处理的请求完成
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		if err := server.Shutdown(ctx); err != nil {
			c.log.Error("http server shutdown failed", zap.Error(err))
		} else {
			c.log.Info("http server stopped")
		}
		cancel()
	}

	// --- 阶段一: 优雅停机 ---
	c.GracefulManager.Shutdown()
	remaining := c.GracefulManager.WaitWithTimeout(gracefulTimeout)
	if len(remaining) > 0 {
		// --- 阶段二: 强制停机 ---
		c.log.Warn("graceful phase timed out, forcing stop", zap.Strings("remaining", remaining))
		c.ForcefulManager.Shutdown()
		if left := c.ForcefulManager.WaitWithTimeout(forcefulTimeout); len(left) > 0 {
			c.log.Error("services did not stop", zap.Strings("remaining", left))
		}
	} else {
		c.log.Info("all background services stopped")
	}

	// --- 最终步骤: 释放资源 ---
	for _, f := range c.finalizers {
		if err := f.fn(); err != nil {
			c.log.Error("release failed", zap.String("resource", f.name), zap.Error(err))
		}
	}
	c.log.Info("shutdown complete")
}
