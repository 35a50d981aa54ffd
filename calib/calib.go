// Package calib maps raw touch readings to screen pixels with a three point
// affine calibration, and saves and restores that calibration on byte
// addressable non-volatile storage.
package calib

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/golang/glog"
)

// Point is a coordinate pair, used for both raw sensor readings and screen
// pixels.
type Point = image.Point

var (
	// ErrCollinear is returned when the three raw reference points do not
	// span a plane, so no unique affine map exists.
	ErrCollinear = errors.New("calib: reference points are collinear")
	// ErrNotCalibrated is returned when a matrix is needed but none has been
	// computed or loaded.
	ErrNotCalibrated = errors.New("calib: not calibrated")
	// ErrNoCalibration is returned when storage holds no valid calibration.
	ErrNoCalibration = errors.New("calib: no stored calibration")
)

// Marker is the validity byte stored ahead of a saved matrix.
const Marker = 0x55

const matrixSize = 7 * 8

// BlockSize is the number of storage bytes a saved calibration occupies:
// the marker followed by the encoded Matrix.
const BlockSize = 1 + matrixSize

// Matrix holds the affine coefficients
//
//	x = (A*rx + B*ry + C) / Div
//	y = (D*rx + E*ry + F) / Div
//
// A zero Div means uncalibrated.
type Matrix struct {
	A, B, C, D, E, F, Div int64
}

// Solve computes the matrix mapping raw points tp onto screen points lcd.
// tp[i] and lcd[i] must denote the same physical point.
func Solve(lcd, tp [3]Point) (Matrix, error) {
	var (
		tx0, ty0 = int64(tp[0].X), int64(tp[0].Y)
		tx1, ty1 = int64(tp[1].X), int64(tp[1].Y)
		tx2, ty2 = int64(tp[2].X), int64(tp[2].Y)
		lx0, ly0 = int64(lcd[0].X), int64(lcd[0].Y)
		lx1, ly1 = int64(lcd[1].X), int64(lcd[1].Y)
		lx2, ly2 = int64(lcd[2].X), int64(lcd[2].Y)
	)
	div := (tx0-tx2)*(ty1-ty2) - (tx1-tx2)*(ty0-ty2)
	if div == 0 {
		return Matrix{}, ErrCollinear
	}
	return Matrix{
		A: (lx0-lx2)*(ty1-ty2) - (lx1-lx2)*(ty0-ty2),
		B: (tx0-tx2)*(lx1-lx2) - (lx0-lx2)*(tx1-tx2),
		C: (tx2*lx1-tx1*lx2)*ty0 + (tx0*lx2-tx2*lx0)*ty1 + (tx1*lx0-tx0*lx1)*ty2,
		D: (ly0-ly2)*(ty1-ty2) - (ly1-ly2)*(ty0-ty2),
		E: (tx0-tx2)*(ly1-ly2) - (ly0-ly2)*(tx1-tx2),
		F: (tx2*ly1-tx1*ly2)*ty0 + (tx0*ly2-tx2*ly0)*ty1 + (tx1*ly0-tx0*ly1)*ty2,
		Div: div,
	}, nil
}

// Valid reports whether m can be used for mapping.
func (m Matrix) Valid() bool {
	return m.Div != 0
}

// Transform maps a raw reading to screen coordinates. Division truncates
// toward zero.
func (m Matrix) Transform(raw Point) (Point, error) {
	if m.Div == 0 {
		return Point{}, ErrNotCalibrated
	}
	rx, ry := int64(raw.X), int64(raw.Y)
	return Point{
		X: int((m.A*rx + m.B*ry + m.C) / m.Div),
		Y: int((m.D*rx + m.E*ry + m.F) / m.Div),
	}, nil
}

// MarshalBinary encodes A through F then Div as little endian int64.
func (m Matrix) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, matrixSize)
	for _, v := range [...]int64{m.A, m.B, m.C, m.D, m.E, m.F, m.Div} {
		b = binary.LittleEndian.AppendUint64(b, uint64(v))
	}
	return b, nil
}

// UnmarshalBinary decodes the layout written by MarshalBinary.
func (m *Matrix) UnmarshalBinary(b []byte) error {
	if len(b) != matrixSize {
		return fmt.Errorf("calib: matrix is %d bytes, want %d", len(b), matrixSize)
	}
	var v [7]int64
	for i := range v {
		v[i] = int64(binary.LittleEndian.Uint64(b[i*8:]))
	}
	*m = Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5], Div: v[6]}
	return nil
}

// Calibrator holds the live calibration for a session.
type Calibrator struct {
	m Matrix
}

// New returns an uncalibrated Calibrator.
func New() *Calibrator {
	return &Calibrator{}
}

// SetCalibration solves for the matrix mapping raw points tp onto screen
// points lcd and makes it live. On ErrCollinear the calibrator is left
// uncalibrated.
func (c *Calibrator) SetCalibration(lcd, tp [3]Point) error {
	m, err := Solve(lcd, tp)
	c.m = m
	if err != nil {
		return err
	}
	glog.V(1).Infof("calib: solved %+v", m)
	return nil
}

// Matrix returns the live matrix.
func (c *Calibrator) Matrix() Matrix {
	return c.m
}

// SetMatrix replaces the live matrix.
func (c *Calibrator) SetMatrix(m Matrix) {
	c.m = m
}

// Calibrated reports whether the live matrix is usable.
func (c *Calibrator) Calibrated() bool {
	return c.m.Valid()
}

// Reset discards the live matrix.
func (c *Calibrator) Reset() {
	c.m = Matrix{}
}

// Transform maps raw through the live matrix.
func (c *Calibrator) Transform(raw Point) (Point, error) {
	return c.m.Transform(raw)
}

// WriteCalibration stores the marker and the live matrix at addr. Nothing is
// written when uncalibrated.
func (c *Calibrator) WriteCalibration(w io.WriterAt, addr int64) error {
	if !c.m.Valid() {
		return ErrNotCalibrated
	}
	b, err := c.m.MarshalBinary()
	if err != nil {
		return err
	}
	buf := append([]byte{Marker}, b...)
	if _, err := w.WriteAt(buf, addr); err != nil {
		return fmt.Errorf("calib: write at %d: %w", addr, err)
	}
	return nil
}

// ReadCalibration loads the matrix stored at addr. The live matrix is only
// replaced when the marker is present and the block reads back whole.
func (c *Calibrator) ReadCalibration(r io.ReaderAt, addr int64) error {
	var marker [1]byte
	if err := readFull(r, marker[:], addr); err != nil {
		return err
	}
	if marker[0] != Marker {
		glog.V(1).Infof("calib: marker at %d is %#02x", addr, marker[0])
		return ErrNoCalibration
	}
	b := make([]byte, matrixSize)
	if err := readFull(r, b, addr+1); err != nil {
		return err
	}
	var m Matrix
	if err := m.UnmarshalBinary(b); err != nil {
		return err
	}
	c.m = m
	return nil
}

func readFull(r io.ReaderAt, b []byte, off int64) error {
	n, err := r.ReadAt(b, off)
	if n == len(b) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("calib: read at %d: %w", off, err)
}
