package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/agbru/raysplit/internal/format"
)

// historySize is the number of samples kept per sparkline.
const historySize = 40

// MetricsModel shows runtime memory, render rate and host load history.
type MetricsModel struct {
	alloc        uint64
	heapSys      uint64
	numGC        uint32
	pauseTotalNs uint64
	numGoroutine int
	// rate is the smoothed progress per second.
	rate         float64
	lastProgress float64
	lastUpdate   time.Time
	cpu          *RingBuffer
	mem          *RingBuffer
	width        int
	height       int
}

// NewMetricsModel returns an empty metrics panel.
func NewMetricsModel() MetricsModel {
	return MetricsModel{
		lastUpdate: time.Now(),
		cpu:        NewRingBuffer(historySize),
		mem:        NewRingBuffer(historySize),
	}
}

// SetSize sets the panel size, borders included.
func (m *MetricsModel) SetSize(w, h int) {
	m.width, m.height = w, h
}

// UpdateMemStats records a runtime memory sample.
func (m *MetricsModel) UpdateMemStats(msg MemStatsMsg) {
	m.alloc = msg.Alloc
	m.heapSys = msg.HeapSys
	m.numGC = msg.NumGC
	m.pauseTotalNs = msg.PauseTotalNs
	m.numGoroutine = msg.NumGoroutine
}

// UpdateSysStats appends a host sample to the histories.
func (m *MetricsModel) UpdateSysStats(msg SysStatsMsg) {
	m.cpu.Push(msg.CPUPercent)
	m.mem.Push(msg.MemPercent)
}

// UpdateProgress folds the average progress into the smoothed rate. Samples
// closer than 50ms apart are ignored, and so is a falling average, which
// happens when the next render of a comparison starts.
func (m *MetricsModel) UpdateProgress(average float64) {
	now := time.Now()
	dt := now.Sub(m.lastUpdate).Seconds()
	if dt <= 0.05 {
		return
	}
	if dp := average - m.lastProgress; dp > 0 {
		instant := dp / dt
		if m.rate > 0 {
			m.rate = 0.7*m.rate + 0.3*instant
		} else {
			m.rate = instant
		}
	}
	m.lastProgress = average
	m.lastUpdate = now
}

// View renders the panel.
func (m MetricsModel) View() string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render("METRICS"))
	fmt.Fprintf(&b, "\n %s %s  %s %s",
		metricLabelStyle.Render("Heap:"), metricValueStyle.Render(format.FormatBytes(m.alloc)+" / "+format.FormatBytes(m.heapSys)),
		metricLabelStyle.Render("GC:"), metricValueStyle.Render(fmt.Sprintf("%d (%.1fms)", m.numGC, float64(m.pauseTotalNs)/1e6)))
	fmt.Fprintf(&b, "\n %s %s  %s %s",
		metricLabelStyle.Render("Goroutines:"), metricValueStyle.Render(fmt.Sprintf("%d", m.numGoroutine)),
		metricLabelStyle.Render("Rate:"), metricValueStyle.Render(fmt.Sprintf("%.1f%%/s", 100*m.rate)))
	fmt.Fprintf(&b, "\n %s %s %s",
		metricLabelStyle.Render("CPU"), cpuSparklineStyle.Render(RenderSparkline(m.cpu.Slice())),
		metricValueStyle.Render(fmt.Sprintf("%.0f%%", m.cpu.Last())))
	fmt.Fprintf(&b, "\n %s %s %s",
		metricLabelStyle.Render("MEM"), memSparklineStyle.Render(RenderSparkline(m.mem.Slice())),
		metricValueStyle.Render(fmt.Sprintf("%.0f%%", m.mem.Last())))
	return panelStyle.Width(max(m.width-2, 0)).Height(max(m.height-2, 0)).Render(b.String())
}
