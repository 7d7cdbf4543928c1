// Package sysmon samples host and process resource usage for the verbose
// render report.
package sysmon

import (
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Stats holds a single snapshot of resource usage.
type Stats struct {
	CPUPercent float64 // system-wide, 0.0 .. 100.0
	MemPercent float64 // system-wide, 0.0 .. 100.0
	// UserCPU and SystemCPU are the CPU time consumed by this process so
	// far; zero where the platform does not report them.
	UserCPU   time.Duration
	SystemCPU time.Duration
}

// Sample collects a single snapshot. CPU uses interval=0 (delta since last
// call). Fields that cannot be read are left at zero.
func Sample() Stats {
	var s Stats
	cpuPcts, err := cpu.Percent(0, false)
	if err == nil && len(cpuPcts) > 0 {
		s.CPUPercent = cpuPcts[0]
	}
	vmem, err := mem.VirtualMemory()
	if err == nil && vmem != nil {
		s.MemPercent = vmem.UsedPercent
	}
	s.UserCPU, s.SystemCPU = processCPU()
	return s
}

// CPUTime returns the process CPU time spent between two samples.
func (s Stats) CPUTime(before Stats) time.Duration {
	return (s.UserCPU - before.UserCPU) + (s.SystemCPU - before.SystemCPU)
}
