package outbox

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// freeBytes reports the bytes available to unprivileged writers on the
// filesystem holding path.
func freeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(filepath.Dir(path), &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// checkFreeSpace refuses writes when the data volume is nearly full so a
// failed enqueue surfaces as a storage error instead of a corrupt row.
func (s *Store) checkFreeSpace() error {
	if s.minFree == 0 || s.statfsFunc == nil {
		return nil
	}
	avail, err := s.statfsFunc(s.path)
	if err != nil {
		// Unable to measure; let SQLite report the real failure if any.
		return nil
	}
	if avail < s.minFree {
		return fmt.Errorf("%w: %d bytes free below floor of %d", ErrStorage, avail, s.minFree)
	}
	return nil
}
