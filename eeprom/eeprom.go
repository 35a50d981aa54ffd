// Package eeprom provides byte addressable non-volatile storage for touch
// calibration: an AT24Cxx serial EEPROM on an I²C bus, or a plain file that
// stands in for one on hosts without a chip.
//
// Both types implement io.ReaderAt and io.WriterAt and reject accesses that
// fall outside the configured size.
package eeprom

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/i2c"
	"tinygo.org/x/drivers/at24cx"
)

// ErrRange is returned for accesses beyond the end of the device.
var ErrRange = errors.New("eeprom: access out of range")

// Erased is the value of a blank cell.
const Erased = 0xFF

// Opts holds the configuration options.
type Opts struct {
	// Addr is the 7 bit I²C address.
	Addr uint16
	// PageSize is the write page in bytes.
	PageSize uint16
	// Size is the capacity in bytes.
	Size int64
}

// DefaultOpts matches an AT24C32 with all address pins high, as fitted to
// the common DS3231 RTC modules.
var DefaultOpts = Opts{
	Addr:     at24cx.Address,
	PageSize: 32,
	Size:     4096,
}

// AT24C is a handle to an AT24C32/64/128/256 EEPROM.
type AT24C struct {
	bus  i2c.Bus
	dev  at24cx.Device
	size int64
}

// NewAT24C returns a handle to the EEPROM on bus. It does not touch the
// device. Size must fit the driver's 16 bit end address, so at most 0xFFFF
// bytes are addressable.
func NewAT24C(bus i2c.Bus, opts *Opts) (*AT24C, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Size <= 0 || opts.Size > math.MaxUint16 {
		return nil, fmt.Errorf("eeprom: invalid size %d", opts.Size)
	}
	dev := at24cx.New(bus)
	if opts.Addr != 0 {
		dev.Address = opts.Addr
	}
	dev.Configure(at24cx.Config{
		PageSize:      opts.PageSize,
		EndRAMAddress: uint16(opts.Size),
	})
	return &AT24C{bus: bus, dev: dev, size: opts.Size}, nil
}

func (e *AT24C) String() string {
	return fmt.Sprintf("AT24C{%s, %#02x}", e.bus, e.dev.Address)
}

// Halt implements conn.Resource. It is a noop.
func (e *AT24C) Halt() error {
	return nil
}

// Size returns the capacity in bytes.
func (e *AT24C) Size() int64 {
	return e.size
}

// ReadAt implements io.ReaderAt.
func (e *AT24C) ReadAt(b []byte, off int64) (int, error) {
	if err := check(off, len(b), e.size); err != nil {
		return 0, err
	}
	n, err := e.dev.ReadAt(b, off)
	if err != nil {
		return 0, fmt.Errorf("eeprom: read %d bytes at %d: %w", len(b), off, err)
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Writes are split on page boundaries and
// each page waits out the device write cycle.
func (e *AT24C) WriteAt(b []byte, off int64) (int, error) {
	if err := check(off, len(b), e.size); err != nil {
		return 0, err
	}
	n, err := e.dev.WriteAt(b, off)
	if err != nil {
		return 0, fmt.Errorf("eeprom: write %d bytes at %d: %w", len(b), off, err)
	}
	glog.V(2).Infof("eeprom: wrote %d bytes at %d", n, off)
	return n, nil
}

// File emulates an EEPROM in a file. A new file is filled with Erased.
type File struct {
	f    *os.File
	size int64
}

// OpenFile opens or creates the image at path with the given capacity.
func OpenFile(path string, size int64) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("eeprom: invalid size %d", size)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < size {
		blank := make([]byte, size-fi.Size())
		for i := range blank {
			blank[i] = Erased
		}
		if _, err := f.WriteAt(blank, fi.Size()); err != nil {
			f.Close()
			return nil, fmt.Errorf("eeprom: erase %s: %w", path, err)
		}
		glog.V(1).Infof("eeprom: initialised %s to %d bytes", path, size)
	}
	return &File{f: f, size: size}, nil
}

func (f *File) String() string {
	return fmt.Sprintf("eeprom.File{%s}", f.f.Name())
}

// Size returns the capacity in bytes.
func (f *File) Size() int64 {
	return f.size
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(b []byte, off int64) (int, error) {
	if err := check(off, len(b), f.size); err != nil {
		return 0, err
	}
	return f.f.ReadAt(b, off)
}

// WriteAt implements io.WriterAt.
func (f *File) WriteAt(b []byte, off int64) (int, error) {
	if err := check(off, len(b), f.size); err != nil {
		return 0, err
	}
	n, err := f.f.WriteAt(b, off)
	if err != nil {
		return n, err
	}
	return n, f.f.Sync()
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

func check(off int64, n int, size int64) error {
	if off < 0 || off+int64(n) > size {
		return fmt.Errorf("%w: %d bytes at %d, size %d", ErrRange, n, off, size)
	}
	return nil
}
