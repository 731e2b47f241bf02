// +build linux

package aghos

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

func haveAdminRights() (bool, error) {
	// The error is nil because the platform-independent function signature
	// requires returning an error.
	return os.Getuid() == 0, nil
}

func isOpenWrt() (ok bool) {
	const etcDir = "/etc"

	entries, err := os.ReadDir(etcDir)
	if err != nil {
		return false
	}

	// fNameSubstr is a part of a name of the desired file.
	const fNameSubstr = "release"
	osNameData := []byte("OpenWrt")

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fn := entry.Name()
		if !strings.Contains(fn, fNameSubstr) {
			continue
		}

		body, err := os.ReadFile(filepath.Join(etcDir, fn))
		if err != nil {
			continue
		}

		if bytes.Contains(body, osNameData) {
			return true
		}
	}

	return false
}
