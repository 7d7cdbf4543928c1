package format

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestProgressState(t *testing.T) {
	t.Parallel()
	ps := NewProgressState(4)
	ps.Update(0, 1)
	ps.Update(1, 0.5)
	ps.Update(2, 1.7) // clamped
	ps.Update(3, -2)  // clamped
	ps.Update(9, 1)   // ignored
	if got := ps.CalculateAverage(); got != 0.625 {
		t.Errorf("average = %v, want 0.625", got)
	}

	for _, n := range []int{0, -3} {
		if got := NewProgressState(n).CalculateAverage(); got != 0 {
			t.Errorf("NewProgressState(%d) average = %v, want 0", n, got)
		}
	}
}

func TestProgressWithETA(t *testing.T) {
	t.Parallel()
	p := NewProgressWithETA(2)
	if eta := p.GetETA(); eta != 0 {
		t.Errorf("ETA before any update = %v, want 0", eta)
	}

	time.Sleep(10 * time.Millisecond)
	avg, eta := p.UpdateWithETA(0, 0.5)
	if avg != 0.25 {
		t.Errorf("average = %v, want 0.25", avg)
	}
	if eta <= 0 || eta > maxETA {
		t.Errorf("ETA = %v, want positive and capped", eta)
	}

	p.UpdateWithETA(0, 1)
	if avg, eta := p.UpdateWithETA(1, 1); avg != 1 || eta != 0 {
		t.Errorf("finished: average %v ETA %v, want 1 and 0", avg, eta)
	}
}

func TestProgressWithETACap(t *testing.T) {
	t.Parallel()
	p := NewProgressWithETA(1)
	p.startTime = time.Now().Add(-1000 * time.Hour)
	if _, eta := p.UpdateWithETA(0, 0.001); eta != maxETA {
		t.Errorf("ETA = %v, want cap %v", eta, maxETA)
	}
}

func TestProgressWithETAConcurrent(t *testing.T) {
	t.Parallel()
	const renders = 7
	p := NewProgressWithETA(renders)
	var wg sync.WaitGroup
	for i := 0; i < renders; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			for step := 1; step <= 50; step++ {
				p.UpdateWithETA(index, float64(step)/50)
				_ = p.GetETA()
			}
		}(i)
	}
	wg.Wait()
	if got := p.CalculateAverage(); got != 1 {
		t.Errorf("average = %v, want 1", got)
	}
}

func TestProgressBar(t *testing.T) {
	t.Parallel()
	tests := []struct {
		progress    float64
		length      int
		full, empty int
	}{
		{0, 10, 0, 10},
		{0.5, 10, 5, 5},
		{1, 10, 10, 0},
		{1.5, 4, 4, 0},
		{-1, 4, 0, 4},
		{0.5, 0, 0, 0},
	}
	for _, tt := range tests {
		bar := ProgressBar(tt.progress, tt.length)
		if f, e := strings.Count(bar, "█"), strings.Count(bar, "░"); f != tt.full || e != tt.empty {
			t.Errorf("ProgressBar(%v, %d) = %q: %d full %d empty, want %d and %d", tt.progress, tt.length, bar, f, e, tt.full, tt.empty)
		}
	}
}

func TestFormatProgressBarWithETA(t *testing.T) {
	t.Parallel()
	got := FormatProgressBarWithETA(0.421, 3*time.Second, 10)
	if want := "[████░░░░░░]  42.1% ETA: 3s"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := FormatProgressBarWithETA(2, 0, 4); !strings.Contains(got, "100.0%") || !strings.Contains(got, "calculating...") {
		t.Errorf("clamped bar = %q", got)
	}
}
