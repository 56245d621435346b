//go:build !linux

package camera

import (
	"fmt"
	"runtime"
)

// OpenV4L2 is only available on Linux.
func OpenV4L2(cfg Config) (Camera, error) {
	return nil, fmt.Errorf("v4l2 camera not supported on %s, use camera.type: mock", runtime.GOOS)
}
