//go:build !linux

package elfloader

import "os"

func mapImage(*os.File, int64, *layout) (*Image, error) {
	return nil, ErrUnsupported
}
