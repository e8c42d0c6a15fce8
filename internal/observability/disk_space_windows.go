//go:build windows

package observability

import "golang.org/x/sys/windows"

// DiskUsageOf reports the volume holding path. Free is what the calling
// user may allocate.
func DiskUsageOf(path string) (DiskUsage, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return DiskUsage{}, err
	}
	var available, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &available, &total, &totalFree); err != nil {
		return DiskUsage{}, err
	}
	return DiskUsage{Total: total, Free: available}, nil
}
