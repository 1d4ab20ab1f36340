package file

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/logger"
)

// AtomicFileOutput is a Writer that replaces the file at targetPath only when Commit is called.
// Bytes are written to a temp file in the same directory as the target, which is synced and renamed
// over the target on Commit, so readers see either the previous file or the complete new one.
type AtomicFileOutput struct {
	log        logger.Logger
	targetPath string
	file       *os.File
	fWriter    *bufio.Writer
	committed  bool
	closed     bool
}

// NewAtomicFileOutput creates the directory of targetPath if needed and opens a temp file next to it.
func NewAtomicFileOutput(log logger.Logger, targetPath string) (*AtomicFileOutput, error) {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating output directory %v", dir)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return nil, errors.Wrapf(err, "error creating temp file for %v", targetPath)
	}
	log.Debug("writing to temp file ", f.Name(), " for target ", targetPath)
	return &AtomicFileOutput{log: log, targetPath: targetPath, file: f, fWriter: bufio.NewWriter(f)}, nil
}

func (f *AtomicFileOutput) Write(p []byte) (n int, err error) {
	if f.closed {
		return 0, errors.New("write to closed file output")
	}
	return f.fWriter.Write(p)
}

// TempName returns the path of the temp file being written.
func (f *AtomicFileOutput) TempName() string {
	return f.file.Name()
}

// Commit flushes and syncs the temp file, then renames it over the target path.
func (f *AtomicFileOutput) Commit() error {
	if f.closed {
		return errors.New("file output is already closed")
	}
	f.closed = true
	if err := f.fWriter.Flush(); err != nil {
		f.discard()
		return errors.Wrap(err, "error flushing output")
	}
	if err := f.file.Sync(); err != nil {
		f.discard()
		return errors.Wrap(err, "error syncing output")
	}
	if err := f.file.Close(); err != nil {
		_ = os.Remove(f.file.Name())
		return errors.Wrap(err, "error closing output")
	}
	if err := os.Rename(f.file.Name(), f.targetPath); err != nil {
		_ = os.Remove(f.file.Name())
		return errors.Wrapf(err, "error renaming output to %v", f.targetPath)
	}
	f.committed = true
	f.log.Debug("committed file ", f.targetPath)
	return nil
}

// Cleanup can be deferred by the caller to remove the temp file if Commit was not called or failed.
func (f *AtomicFileOutput) Cleanup() {
	if f.closed {
		return
	}
	f.closed = true
	f.discard()
}

func (f *AtomicFileOutput) discard() {
	_ = f.file.Close()
	if err := os.Remove(f.file.Name()); err != nil && !os.IsNotExist(err) {
		f.log.Warn("unable to remove temp file ", f.file.Name(), ": ", err)
	}
}
