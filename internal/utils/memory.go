package utils

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// memoryBudgetShare caps how much of currently available RAM a single
// in-memory download may claim.
const memoryBudgetShare = 0.75

// CheckMemoryBudget verifies that a download of the given size can be
// assembled in memory. Unknown sizes (<= 0) pass; so does any size when the
// platform does not report memory stats.
func CheckMemoryBudget(totalBytes int64) error {
	if totalBytes <= 0 {
		return nil
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil
	}
	budget := uint64(float64(vm.Available) * memoryBudgetShare)
	if uint64(totalBytes) > budget {
		return fmt.Errorf("%w: need %s, budget %s of %s available",
			ErrFileTooLarge, FormatBytes(uint64(totalBytes)), FormatBytes(budget), FormatBytes(vm.Available))
	}
	return nil
}
