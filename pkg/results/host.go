package results

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostInfo is the machine metadata recorded with every run so timings
// stay comparable across hosts.
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	CPUs            int    `json:"cpus"`
	TotalMemoryMB   uint64 `json:"total_memory_mb"`
}

// CollectHostInfo gathers metadata about the current machine. Fields
// that cannot be determined are left at their zero value rather than
// failing the run.
func CollectHostInfo() HostInfo {
	info := HostInfo{
		OS:   runtime.GOOS,
		CPUs: runtime.NumCPU(),
	}

	if hostInfo, err := host.Info(); err == nil {
		info.Hostname = hostInfo.Hostname
		info.Platform = hostInfo.Platform
		info.PlatformVersion = hostInfo.PlatformVersion
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemoryMB = vm.Total / (1024 * 1024)
	}

	return info
}
