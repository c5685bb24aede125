// Package backend resolves, once per process, which execution strategy the
// numeric kernels use: the native CPU path or the GPU compute path. The
// resolution is immutable for the process lifetime; call sites receive the
// resolved strategy by injection and never re-probe.
package backend

// Kind is the closed set of execution strategies.
type Kind int

const (
	// NativeCPU runs the kernels on the host CPU.
	NativeCPU Kind = iota
	// GPUCompute dispatches batches to a compute device.
	GPUCompute
)

// String returns the canonical backend name.
func (k Kind) String() string {
	switch k {
	case NativeCPU:
		return "NATIVE_CPU"
	case GPUCompute:
		return "GPU_COMPUTE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText serializes the canonical name, so a Selection rendered as JSON
// carries the backend name rather than an opaque integer.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
