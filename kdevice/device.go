// Package kdevice defines the device-framework surface this kernel
// exposes to drivers, grounded on the block/serial device traits from
// kernel/src/devices/{block,serial}/mod.rs and
// kernel/src/drivers/serial/serial.rs: a small set of Go interfaces plus
// a loopback/null implementation of each, sufficient to exercise the
// contract from tests and from kvfs without any real hardware backing
// it. Driver bodies for actual silicon are out of scope; what lives here
// is the shape a driver would plug into.
package kdevice

import "errors"

// ErrClosed is returned by LoopbackUart.Write after Close.
var ErrClosed = errors.New("kdevice: device closed")

// Device is the minimal identity every registered device satisfies,
// mirroring the original's device-class/name pairing used for lookup.
type Device interface {
	Name() string
	Close() error
}

// UartOps is the serial-device surface from drivers/serial/serial.go:
// byte-oriented, blocking reads and writes, no framing of its own.
type UartOps interface {
	Device
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
}

// BlockOps is the block-device surface from devices/block/mod.go:
// fixed-size sector reads and writes addressed by logical block number.
type BlockOps interface {
	Device
	BlockSize() int
	BlockCount() int64
	ReadBlock(lba int64, p []byte) error
	WriteBlock(lba int64, p []byte) error
}
