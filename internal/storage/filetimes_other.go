//go:build !darwin && !windows

package storage

import "time"

// setCreationTime is a no-op where the OS offers no way to change a file's
// birth time, notably Linux. The modification time still carries the note's
// updated timestamp.
func setCreationTime(_ string, _ time.Time) error {
	return nil
}
