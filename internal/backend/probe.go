package backend

import (
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Probe holds the environment and hardware signals the selector consumes.
type Probe struct {
	Headless           bool   `json:"headless"`
	SoftwareRasterizer bool   `json:"software_rasterizer"`
	ComputeDevice      string `json:"compute_device"` // empty when none detected
	CPUModel           string `json:"cpu_model"`
	Cores              int    `json:"cores"`
}

// Renderer names that indicate a software rasterizer. GPU compute on an
// emulated graphics stack is strictly worse than the CPU path.
var softwareRenderers = []string{"llvmpipe", "softpipe", "swiftshader", "swrast"}

// Detect gathers the runtime signals: display availability, rasterizer
// type, declared compute device, and CPU identity via gopsutil.
func Detect() Probe {
	p := Probe{
		Headless:      os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "",
		ComputeDevice: os.Getenv("WHEAT_COMPUTE_DEVICE"),
		Cores:         runtime.NumCPU(),
	}

	if v := os.Getenv("LIBGL_ALWAYS_SOFTWARE"); v == "1" || strings.EqualFold(v, "true") {
		p.SoftwareRasterizer = true
	}
	renderer := strings.ToLower(os.Getenv("WHEAT_RENDERER"))
	for _, sw := range softwareRenderers {
		if strings.Contains(renderer, sw) {
			p.SoftwareRasterizer = true
			break
		}
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		p.CPUModel = infos[0].ModelName
	}
	if counts, err := cpu.Counts(true); err == nil && counts > 0 {
		p.Cores = counts
	}

	return p
}
