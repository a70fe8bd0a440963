package tensor

import (
	"strings"

	"github.com/pkg/errors"
)

// Device represents the compute device a matrix is placed on.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// Format is the storage representation of a matrix.
type Format int

// Storage formats.
const (
	// Dense stores every element, column-major.
	Dense Format = iota
	// SparseBlockCol stores only a sorted set of columns; all other columns are zero.
	SparseBlockCol
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case Dense:
		return "dense"
	case SparseBlockCol:
		return "sparse-block-col"
	default:
		return "unknown"
	}
}

// ParseDevice returns the device named s, case-insensitively.
func ParseDevice(s string) (Device, error) {
	for d := CPU; d <= WebGPU; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return CPU, errors.Errorf("unknown device %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Device) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Device) UnmarshalText(text []byte) error {
	parsed, err := ParseDevice(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
