//go:build windows

package hostdir

import (
	"syscall"
	"unsafe"
)

// diskUsage returns total and free bytes of the filesystem containing
// path via GetDiskFreeSpaceExW.
func diskUsage(path string) (total uint64, free uint64, err error) {
	k32 := syscall.NewLazyDLL("kernel32.dll")
	proc := k32.NewProc("GetDiskFreeSpaceExW")

	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, err
	}

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	r1, _, e1 := proc.Call(
		uintptr(unsafe.Pointer(p)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		uintptr(unsafe.Pointer(&totalBytes)),
		uintptr(unsafe.Pointer(&totalFreeBytes)),
	)
	if r1 == 0 {
		if e1 != nil {
			return 0, 0, e1
		}
		return 0, 0, syscall.EINVAL
	}
	return totalBytes, freeBytesAvailable, nil
}
