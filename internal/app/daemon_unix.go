//go:build !windows

package app

import (
	"fmt"
	"log/syslog"
	"os"
	"os/exec"
	"syscall"

	"github.com/AdguardTeam/golibs/log"
)

// daemonEnv marks a re-exec'd process as the detached child, so it does not
// try to fork again.
const daemonEnv = "NDPPD_DAEMON_CHILD=1"

// Daemonize detaches the process from its controlling terminal and returns
// true in the child that should continue running, false in the parent, which
// the caller then exits.  Calling fork(2) directly from a multi-threaded Go
// process corrupts runtime state, so this re-execs the binary with its
// original arguments in a new session instead — the usual fork+setsid end
// state, reached by a route that is safe under the Go runtime.  In the child,
// log output is switched to syslog when syslog is reachable.
func Daemonize() (isChild bool, err error) {
	if os.Getenv("NDPPD_DAEMON_CHILD") == "1" {
		if w, sErr := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "ndppd"); sErr == nil {
			log.SetOutput(w)
		}

		return true, nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("resolving executable path: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(exePath, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonEnv)
	cmd.Dir = "/"
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err = cmd.Start(); err != nil {
		return false, fmt.Errorf("starting detached child: %w", err)
	}

	return false, nil
}
