package app

import (
	"fmt"
	"os"
)

// WritePIDFile writes the current process's PID to path, truncating any
// existing contents.
func WritePIDFile(path string) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening pidfile %q: %w", path, err)
	}
	defer f.Close()

	if _, err = fmt.Fprintln(f, os.Getpid()); err != nil {
		return fmt.Errorf("writing pidfile %q: %w", path, err)
	}

	return nil
}
