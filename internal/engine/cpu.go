package engine

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// DefaultWorkers returns max(1, logical CPUs - 1), leaving one CPU for the
// producer.
func DefaultWorkers(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	return max(1, n-1)
}
