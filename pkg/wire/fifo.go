package wire

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// FIFOMode is the permission of created FIFOs.
const FIFOMode = 0o640

// MakeFIFO creates a FIFO at path, replacing a stale file.
func MakeFIFO(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale %s: %w", path, err)
	}
	if err := unix.Mkfifo(path, FIFOMode); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// IsFIFO reports whether path is a named pipe.
func IsFIFO(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return fi.Mode()&fs.ModeNamedPipe != 0, nil
}

// EnsureFIFO creates a FIFO at path unless one already exists.
func EnsureFIFO(path string) error {
	ok, err := IsFIFO(path)
	switch {
	case ok:
		return nil
	case err == nil:
		return fmt.Errorf("%s exists and is not a FIFO", path)
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	if err := unix.Mkfifo(path, FIFOMode); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// Opener opens the ends of a channel. The server and client use the
// FIFO implementation; tests substitute in-memory pipes.
type Opener interface {
	OpenRead(path string) (io.ReadCloser, error)
	OpenWrite(path string) (io.WriteCloser, error)
}

// FIFOOpener opens named pipes. Opening blocks until the peer opens the
// other end.
type FIFOOpener struct{}

// OpenRead opens path for reading.
func (FIFOOpener) OpenRead(path string) (io.ReadCloser, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}

// OpenWrite opens path for writing.
func (FIFOOpener) OpenWrite(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY, 0)
}

// OpenListen opens the registration FIFO read-write so that reads never
// see EOF while no client has it open.
func OpenListen(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}
