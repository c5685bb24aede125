package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type systemInfo struct {
	CPUModel      string  `json:"cpu_model"`
	Cores         int     `json:"cores"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskFreeMB    uint64  `json:"disk_free_mb"`
	Goroutines    int     `json:"goroutines"`
	Backend       string  `json:"backend"`
}

// handleSystemInfo reports host resource usage alongside the active compute
// backend. Probe failures degrade to partial data rather than erroring.
func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info := systemInfo{
		Goroutines: runtime.NumGoroutine(),
		Backend:    s.selection.Kind.String(),
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if cores, err := cpu.Counts(true); err == nil {
		info.Cores = cores
	} else {
		info.Cores = runtime.NumCPU()
	}
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		info.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotalMB = vm.Total / 1024 / 1024
		info.MemoryUsedMB = vm.Used / 1024 / 1024
		info.MemoryPercent = vm.UsedPercent
	}
	if usage, err := disk.Usage(s.dataDir); err == nil {
		info.DiskFreeMB = usage.Free / 1024 / 1024
	}

	writeJSON(w, info)
}
