//go:build windows

package storage

import (
	"time"

	"golang.org/x/sys/windows"
)

// setCreationTime sets the NTFS creation time through SetFileTime. The file
// is reopened with write-attribute access only, so its content stays
// untouched.
func setCreationTime(path string, created time.Time) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	h, err := windows.CreateFile(p, windows.FILE_WRITE_ATTRIBUTES,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil,
		windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)

	ft := windows.NsecToFiletime(created.UnixNano())
	return windows.SetFileTime(h, &ft, nil, nil)
}
