// Package windowing provides window functions applied to analysis frames
// before spectral transforms.
package windowing

import "fmt"

// Function is the behavior shared by all window types.
type Function interface {
	Apply(signal []float64) []float64
	ApplyInPlace(signal []float64) error
	GetCoefficients() []float64
	GetSize() int
	GetType() string
}

// Window type names accepted by New.
const (
	TypeHann        = "hann"
	TypeHamming     = "hamming"
	TypeBlackman    = "blackman"
	TypeRectangular = "rectangular"
)

// New creates a window function by name. Symmetric windows are the
// analysis default; periodic variants are selected with symmetric=false.
func New(windowType string, size int, symmetric bool) (Function, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive: %d", size)
	}

	switch windowType {
	case TypeHann, "":
		return NewHann(size, symmetric), nil
	case TypeHamming:
		return NewHamming(size, symmetric), nil
	case TypeBlackman:
		return NewBlackman(size, symmetric), nil
	case TypeRectangular:
		return NewRectangular(size), nil
	default:
		return nil, fmt.Errorf("unsupported window type: %s", windowType)
	}
}
