//go:build windows

package app

import "fmt"

// Daemonize is not supported on Windows: it always returns an error, so
// -d/--daemon makes startup fail.
func Daemonize() (isChild bool, err error) {
	return false, fmt.Errorf("daemonizing is not supported on windows")
}
