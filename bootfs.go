package jshell

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/afero/zipfs"
)

// MountBootArchive layers the zip archive at path under fs: files on fs win,
// files only present in the archive are served from it read-only. When the
// archive does not exist fs is returned unchanged.
func MountBootArchive(fs afero.Fs, path string) (afero.Fs, bool, error) {
	if path == "" {
		return fs, false, nil
	}
	ok, err := afero.Exists(fs, path)
	if err != nil || !ok {
		return fs, false, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, false, fmt.Errorf("jshell: boot archive: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, false, fmt.Errorf("jshell: boot archive %s: %w", path, err)
	}
	return afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(zipfs.New(zr)), fs), true, nil
}
