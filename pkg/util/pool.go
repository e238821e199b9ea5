package util

import "runtime"

// GetOptimalPoolSize returns the size shared by the parser pools and the
// runner's worker pool.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32)
//
// Parsing happens in cgo, so twice the core count keeps cores busy while
// other workers are in file I/O.
func GetOptimalPoolSize() int {
	poolSize := runtime.NumCPU() * 2

	if poolSize < 4 {
		poolSize = 4
	}
	if poolSize > 32 {
		poolSize = 32
	}

	return poolSize
}

// GetOptimalPoolSizeWithOverride returns override when positive, otherwise
// GetOptimalPoolSize().
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
