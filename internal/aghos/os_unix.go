// +build aix darwin dragonfly netbsd openbsd solaris

package aghos

import "os"

func haveAdminRights() (bool, error) {
	return os.Getuid() == 0, nil
}

func isOpenWrt() (ok bool) {
	return false
}
