//go:build !windows

package observability

import "golang.org/x/sys/unix"

// DiskUsageOf reports the filesystem holding path. Free counts only blocks
// available to unprivileged users.
func DiskUsageOf(path string) (DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskUsage{}, err
	}
	bsize := uint64(st.Bsize)
	return DiskUsage{
		Total: uint64(st.Blocks) * bsize,
		Free:  uint64(st.Bavail) * bsize,
	}, nil
}
