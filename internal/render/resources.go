package render

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// loadShift is the fixed-point shift the kernel applies to sysinfo load averages.
const loadShift = 16

// Resources reports host capacity alongside the supervisor's slot usage.
type Resources struct {
	OutputDir     string     `json:"output_dir"`
	DiskFreeBytes uint64     `json:"disk_free_bytes"`
	DiskTotal     uint64     `json:"disk_total_bytes"`
	Load          [3]float64 `json:"load"`
	Running       int        `json:"running"`
	Limit         int        `json:"limit"`
}

// Resources samples disk space on the output volume and the system load.
func (s *Supervisor) Resources() (Resources, error) {
	s.mu.Lock()
	res := Resources{
		OutputDir: s.opts.OutputDir,
		Running:   len(s.running),
		Limit:     s.opts.MaxConcurrent,
	}
	s.mu.Unlock()

	var fs unix.Statfs_t
	if err := unix.Statfs(res.OutputDir, &fs); err != nil {
		return res, fmt.Errorf("statfs %s: %w", res.OutputDir, err)
	}
	res.DiskFreeBytes = fs.Bavail * uint64(fs.Bsize)
	res.DiskTotal = fs.Blocks * uint64(fs.Bsize)

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return res, fmt.Errorf("sysinfo: %w", err)
	}
	for i, load := range info.Loads {
		res.Load[i] = float64(load) / float64(1<<loadShift)
	}
	return res, nil
}
