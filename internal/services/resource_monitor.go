package services

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// ResourceSnapshot is one point-in-time sample of process health.
type ResourceSnapshot struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  uint64    `json:"memory_used_mb"`
	Goroutines    int       `json:"goroutines"`
	SampledAt     time.Time `json:"sampled_at"`
}

// ResourceMonitor samples host CPU/memory and the goroutine count on an
// interval. The health endpoint reports the last sample; a sample that
// fails keeps the previous one.
type ResourceMonitor struct {
	interval time.Duration
	logger   *logrus.Entry

	mu   sync.RWMutex
	last ResourceSnapshot

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewResourceMonitor(interval time.Duration) *ResourceMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ResourceMonitor{
		interval: interval,
		logger:   logrus.WithField("component", "resource_monitor"),
		stopCh:   make(chan struct{}),
	}
}

// Start samples once immediately, then on the interval.
func (m *ResourceMonitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.sample(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sample(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sampling loop.
func (m *ResourceMonitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// Snapshot returns the most recent sample.
func (m *ResourceMonitor) Snapshot() ResourceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *ResourceMonitor) sample(ctx context.Context) {
	snapshot := ResourceSnapshot{
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now().UTC(),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	} else if err != nil {
		m.logger.WithError(err).Debug("CPU sample failed")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snapshot.MemoryPercent = vm.UsedPercent
		snapshot.MemoryUsedMB = vm.Used / 1024 / 1024
	} else {
		m.logger.WithError(err).Debug("Memory sample failed")
	}

	m.mu.Lock()
	m.last = snapshot
	m.mu.Unlock()

	if snapshot.MemoryPercent > 90 || snapshot.CPUPercent > 90 {
		m.logger.WithFields(logrus.Fields{
			"cpu_percent":    snapshot.CPUPercent,
			"memory_percent": snapshot.MemoryPercent,
			"goroutines":     snapshot.Goroutines,
		}).Warn("Resource usage is high")
	}
}
