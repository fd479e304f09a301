package storage

import (
	"os"
	"path/filepath"
)

// FileUsage is the size of one dataset file. Missing files have Exists false.
type FileUsage struct {
	Name   string `json:"name"`
	Bytes  int64  `json:"bytes"`
	Exists bool   `json:"exists"`
}

// DatasetUsage reports the size of each named file in dir and their total.
func DatasetUsage(dir string, names ...string) ([]FileUsage, int64, error) {
	out := make([]FileUsage, 0, len(names))
	var total int64
	for _, name := range names {
		n, err := DiskUsageBytes(filepath.Join(dir, name))
		if err != nil {
			return nil, 0, err
		}
		_, statErr := os.Stat(filepath.Join(dir, name))
		out = append(out, FileUsage{Name: name, Bytes: n, Exists: statErr == nil})
		total += n
	}
	return out, total, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped; errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
