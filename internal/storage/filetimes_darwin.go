//go:build darwin

package storage

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// setCreationTime sets the file's birth time. APFS and HFS+ expose it
// through setattrlist with the ATTR_CMN_CRTIME attribute; there is no
// portable syscall for it.
func setCreationTime(path string, created time.Time) error {
	attrs := unix.Attrlist{
		Bitmapcount: unix.ATTR_BIT_MAP_COUNT,
		Commonattr:  unix.ATTR_CMN_CRTIME,
	}
	ts := unix.NsecToTimespec(created.UnixNano())
	buf := make([]byte, unsafe.Sizeof(ts))
	*(*unix.Timespec)(unsafe.Pointer(&buf[0])) = ts
	return unix.Setattrlist(path, &attrs, buf, 0)
}
