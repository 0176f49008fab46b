package services

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"cwatch-dashboard/backend/system"
)

// SysInfoService reports on the gateway process itself.
type SysInfoService struct {
	clock     system.Clock
	startedAt time.Time
}

func NewSysInfoService(clock system.Clock) *SysInfoService {
	if clock == nil {
		clock = system.NewRealClock()
	}
	return &SysInfoService{clock: clock, startedAt: clock.Now()}
}

// ProcessInfo is a point-in-time view of the running gateway.
type ProcessInfo struct {
	Uptime     string `json:"uptime"`
	HeapAlloc  string `json:"heap_alloc"`
	HeapBytes  uint64 `json:"heap_bytes"`
	Goroutines int    `json:"goroutines"`
	CPUs       int    `json:"cpus"`
}

// GetUptime returns the gateway uptime as "Xd Yh Zm"
func (s *SysInfoService) GetUptime() string {
	return formatUptime(s.clock.Since(s.startedAt))
}

func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// GetProcessInfo samples the Go runtime.
func (s *SysInfoService) GetProcessInfo() ProcessInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return ProcessInfo{
		Uptime:     s.GetUptime(),
		HeapAlloc:  humanize.Bytes(mem.HeapAlloc),
		HeapBytes:  mem.HeapAlloc,
		Goroutines: runtime.NumGoroutine(),
		CPUs:       runtime.NumCPU(),
	}
}
