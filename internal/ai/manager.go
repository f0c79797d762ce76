package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TickManager ticks every registered encampment controller on a fixed interval.
type TickManager struct {
	controllers     sync.Map // map[uint32]Controller, keyed by encampment ID
	interval        time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	controllerCount atomic.Int32 // cached count of controllers
	tickCount       atomic.Int64
}

// NewTickManager creates a tick manager. Non-positive interval defaults to one second.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickManager{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Register registers and starts a controller.
// Re-registering an ID replaces (and stops) the previous controller.
func (m *TickManager) Register(id uint32, controller Controller) {
	if prev, loaded := m.controllers.Swap(id, controller); loaded {
		prev.(Controller).Stop()
	} else {
		m.controllerCount.Add(1)
	}
	controller.Start()

	slog.Debug("encampment controller registered",
		"encampmentID", id,
		"intention", controller.CurrentIntention())
}

// Unregister stops and removes a controller.
func (m *TickManager) Unregister(id uint32) {
	value, ok := m.controllers.LoadAndDelete(id)
	if !ok {
		return
	}

	m.controllerCount.Add(-1)
	value.(Controller).Stop()

	slog.Debug("encampment controller unregistered", "encampmentID", id)
}

// Start runs the tick loop (blocks until context is canceled or Stop is called).
func (m *TickManager) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("AI tick manager started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("AI tick manager stopping")
			return ctx.Err()

		case <-m.stopCh:
			slog.Info("AI tick manager stopped")
			return nil

		case <-ticker.C:
			m.TickAll()
		}
	}
}

// Stop stops the tick loop. Safe to call more than once.
func (m *TickManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// TickAll ticks every registered controller once.
func (m *TickManager) TickAll() {
	count := 0

	m.controllers.Range(func(_, value any) bool {
		value.(Controller).Tick()
		count++
		return true
	})

	n := m.tickCount.Add(1)
	if count > 0 && IsDebugEnabled() {
		slog.Debug("AI tick completed", "tick", n, "controllers", count)
	}
}

// Ticks returns how many times TickAll ran.
func (m *TickManager) Ticks() int64 {
	return m.tickCount.Load()
}

// Count returns number of registered controllers.
func (m *TickManager) Count() int {
	return int(m.controllerCount.Load())
}

// GetController returns the controller registered under id.
func (m *TickManager) GetController(id uint32) (Controller, error) {
	value, ok := m.controllers.Load(id)
	if !ok {
		return nil, fmt.Errorf("controller not found for encampment %d", id)
	}
	return value.(Controller), nil
}
