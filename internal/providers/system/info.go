package system

import (
	"runtime"
	"time"
)

// Info describes the running process.
type Info struct {
	GoVersion     string  `json:"go_version"`
	OS            string  `json:"os"`
	Arch          string  `json:"arch"`
	CPUs          int     `json:"cpus"`
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB uint64  `json:"memory_alloc"`
	MemorySysMB   uint64  `json:"memory_sys"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Snapshot reports runtime information relative to startTime.
func Snapshot(startTime time.Time) Info {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Info{
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CPUs:          runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: m.Alloc / 1024 / 1024,
		MemorySysMB:   m.Sys / 1024 / 1024,
		UptimeSeconds: time.Since(startTime).Seconds(),
	}
}
