package pressure

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// SystemReader measures real system and process resource usage via gopsutil.
type SystemReader struct {
	proc *process.Process
}

// NewSystemReader creates a reader bound to the current process.
func NewSystemReader() (*SystemReader, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("pressure: bind process: %w", err)
	}
	return &SystemReader{proc: proc}, nil
}

// Snapshot measures system memory, OS cache, process RSS, and goroutine count.
func (r *SystemReader) Snapshot(ctx context.Context) (Stats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("pressure: virtual memory: %w", err)
	}
	if vm.Total == 0 {
		return Stats{}, fmt.Errorf("pressure: total memory reported as zero")
	}

	info, err := r.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("pressure: process memory: %w", err)
	}

	return Stats{
		MemoryFraction: vm.UsedPercent / 100.0,
		CacheFraction:  float64(vm.Cached+vm.Buffers) / float64(vm.Total),
		ProcessRSSMB:   float64(info.RSS) / 1024.0 / 1024.0,
		Workers:        runtime.NumGoroutine(),
	}, nil
}
