package encapdoc

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
)

// Persist writes ds to path. The file is written next to path under a
// temporary name and renamed on success, so a failed write leaves nothing
// behind and never truncates an existing file.
func Persist(path string, ds *dicom.Dataset, opts dicom.WriteOptions) (n int64, err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, mark(err, ErrPersistFailure, "creating output in %s", dir)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if n, err = dicom.WriteWithOptions(w, ds, opts); err != nil {
		return 0, mark(err, ErrPersistFailure, "encoding %s", path)
	}
	if err = w.Flush(); err != nil {
		return 0, mark(err, ErrPersistFailure, "writing %s", path)
	}
	if err = tmp.Sync(); err != nil {
		return 0, mark(err, ErrPersistFailure, "syncing %s", path)
	}
	if err = tmp.Close(); err != nil {
		return 0, mark(err, ErrPersistFailure, "closing %s", path)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, mark(err, ErrPersistFailure, "chmod %s", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, errors.WithHint(mark(err, ErrPersistFailure, "renaming onto %s", path),
			"check the output path is a writable file location")
	}
	return n, nil
}
