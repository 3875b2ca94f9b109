//go:build !windows

package hostdir

import "syscall"

// diskUsage returns total and free bytes of the filesystem containing
// path.
func diskUsage(path string) (total uint64, free uint64, err error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bs := uint64(st.Bsize)
	return uint64(st.Blocks) * bs, uint64(st.Bavail) * bs, nil
}
