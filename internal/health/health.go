package health

import (
	"context"
	"time"

	"farmfi-backend/internal/cache"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db      Pinger
	storage Pinger
}

type HealthStatus struct {
	Status   string           `json:"status"`
	Database ComponentHealth  `json:"database"`
	Redis    *ComponentHealth `json:"redis,omitempty"`
	Storage  *ComponentHealth `json:"storage,omitempty"`
	Host     *HostStats       `json:"host,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
}

func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{db: db}
}

// WithStorage adds the object store to the detailed check.
func (h *HealthChecker) WithStorage(p Pinger) *HealthChecker {
	h.storage = p
	return h
}

// CheckBasic pings the database. Overall status follows the database only.
func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := StatusHealthy
	if dbHealth.Status != StatusHealthy {
		status = StatusUnhealthy
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

// CheckDetailed adds cache and host figures. Redis is optional so a missing
// client reports "disabled" without failing the check.
func (h *HealthChecker) CheckDetailed(ctx context.Context) HealthStatus {
	status := h.CheckBasic(ctx)
	status.Redis = checkRedis()
	status.Storage = h.checkStorage(ctx)
	status.Host = hostStats(ctx)
	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	if h.db == nil {
		return ComponentHealth{Status: StatusUnhealthy}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: StatusUnhealthy, ResponseTime: responseTime}
	}
	return ComponentHealth{Status: StatusHealthy, ResponseTime: responseTime}
}

func (h *HealthChecker) checkStorage(ctx context.Context) *ComponentHealth {
	if h.storage == nil {
		return &ComponentHealth{Status: StatusDisabled}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := h.storage.Ping(ctx)
	c := &ComponentHealth{Status: StatusHealthy, ResponseTime: time.Since(start).Milliseconds()}
	if err != nil {
		c.Status = StatusUnhealthy
	}
	return c
}

func checkRedis() *ComponentHealth {
	if cache.GetClient() == nil {
		return &ComponentHealth{Status: StatusDisabled}
	}
	start := time.Now()
	ok := cache.IsHealthy()
	c := &ComponentHealth{Status: StatusHealthy, ResponseTime: time.Since(start).Milliseconds()}
	if !ok {
		c.Status = StatusUnhealthy
	}
	return c
}

func hostStats(ctx context.Context) *HostStats {
	stats := &HostStats{}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsedMB = vm.Used / 1024 / 1024
		stats.MemoryTotalMB = vm.Total / 1024 / 1024
	}
	return stats
}
