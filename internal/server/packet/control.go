package packet

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCharnyshevich/snake-server/internal/server/net"
)

// ControlSize is the exact size of a client control frame.
var ControlSize = net.MustSize(Control{})

var (
	ErrControlSize = errors.New("control frame has wrong size")
	ErrNonFinite   = errors.New("control frame has non-finite field")
)

// Control is the binary frame a client sends to steer its snake.
type Control struct {
	ViewRatio float32 `wire:"f32"` // zoom factor applied to the base view box
	Direction float32 `wire:"f32"` // desired heading, radians
	Boost     bool    `wire:"bool"`
}

// ParseControl decodes and validates a control frame. Callers drop the
// frame on any error.
func ParseControl(data []byte) (Control, error) {
	var c Control
	if len(data) != ControlSize {
		return c, fmt.Errorf("parse control: %d bytes: %w", len(data), ErrControlSize)
	}
	if err := net.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse control: %w", err)
	}
	if !finite(c.ViewRatio) || !finite(c.Direction) {
		return Control{}, fmt.Errorf("parse control: %w", ErrNonFinite)
	}
	return c, nil
}

func finite(f float32) bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
