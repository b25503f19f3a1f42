package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager 协调一组后台服务的生命周期。
// 它由上层模块（如shutdown）持有，并为每个登记的服务分发一个Handle。
type Manager struct {
	name string
	log  *zap.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	services map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager 创建一个管理器，它分发的所有Handle共享同一个可取消的Context。
func NewManager(name string, log *zap.Logger) *Manager {
	m := &Manager{
		name:     name,
		log:      log.Named("lifecycle").With(zap.String("phase", name)),
		services: make(map[string]bool),
	}
	// 与调用方的Context无关，只由Shutdown取消
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// NewServiceHandle 登记一个服务并返回它的Handle。
// 服务退出时必须调用Handle.Close，否则WaitWithTimeout会一直等它。
func (m *Manager) NewServiceHandle(name string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.services[name] {
		return nil, fmt.Errorf("lifecycle %s: service %q already registered", m.name, name)
	}
	m.services[name] = true
	m.wg.Add(1)
	m.log.Debug("service registered", zap.String("service", name))

	return &Handle{
		ctx: m.ctx,
		Close: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// 重复调用Close不会让WaitGroup计数变成负数
			if !m.services[name] {
				return
			}
			delete(m.services, name)
			m.wg.Done()
		},
	}, nil
}

// Go 登记name并在新的Goroutine中运行fn，fn返回时自动关闭Handle。
func (m *Manager) Go(name string, fn func(h *Handle)) error {
	h, err := m.NewServiceHandle(name)
	if err != nil {
		return err
	}
	go func() {
		defer h.Close()
		fn(h)
	}()
	return nil
}

// Shutdown 向所有Handle广播停机信号。
func (m *Manager) Shutdown() {
	m.log.Info("broadcasting shutdown")
	m.cancel()
}

// WaitWithTimeout 等待所有已登记的服务关闭，最多等待timeout。
// 超时后返回仍在运行的服务名称。
func (m *Manager) WaitWithTimeout(timeout time.Duration) []string {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.remaining()
	}
}

// remaining 必须在持有m.mu时调用。
func (m *Manager) remaining() []string {
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
