// Package aghos contains utilities for functions requiring system calls and
// other OS-specific APIs.
package aghos

import (
	"bytes"
	"context"
	"fmt"

	"github.com/AdguardTeam/golibs/ioutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/AdguardTeam/golibs/osutil/executil"
)

// MaxCmdOutputSize is the maximum length of performed shell command output in
// bytes.
const MaxCmdOutputSize = 64 * 1024

// RunCommand runs command with arguments using cmdCons, returning its exit
// code and output: stdout on success, stderr on a non-zero exit code.  A
// non-zero exit code is reported through code, not err; err is reserved for
// failures to even start or wait on the command.
func RunCommand(
	ctx context.Context,
	cmdCons executil.CommandConstructor,
	command string,
	arguments ...string,
) (code int, output []byte, err error) {
	stdoutBuf := bytes.Buffer{}
	stderrBuf := bytes.Buffer{}

	err = executil.Run(
		ctx,
		cmdCons,
		&executil.CommandConfig{
			Path:   command,
			Args:   arguments,
			Stdout: ioutil.NewTruncatedWriter(&stdoutBuf, MaxCmdOutputSize),
			Stderr: &stderrBuf,
		},
	)
	if err == nil {
		return osutil.ExitCodeSuccess, stdoutBuf.Bytes(), nil
	}

	code, ok := executil.ExitCodeFromError(err)
	if ok {
		return code, stderrBuf.Bytes(), nil
	}

	return osutil.ExitCodeFailure, nil, fmt.Errorf("command %q failed: %w: %s", command, err, &stdoutBuf)
}

// HaveAdminRights checks if the current user has root (administrator) rights.
func HaveAdminRights() (bool, error) {
	return haveAdminRights()
}

// IsOpenWrt returns true if host OS is OpenWrt.
func IsOpenWrt() (ok bool) {
	return isOpenWrt()
}
