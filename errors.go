package chunkdata

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferOverflow is returned when a manager writes past the end of its slot.
	ErrBufferOverflow = errors.New("chunkdata: buffer overflow")
	// ErrBufferUnderflow is returned when a manager reads past the end of its slot.
	ErrBufferUnderflow = errors.New("chunkdata: buffer underflow")
	// ErrNotDocument is returned when a manager key in a document holds a non-compound value.
	ErrNotDocument = errors.New("chunkdata: value is not a compound tag")
)

// DuplicateManagerError is returned when a manager is registered under a
// (domain, id) pair that is already taken.
type DuplicateManagerError struct {
	Domain string
	ID     string
}

func (e *DuplicateManagerError) Error() string {
	return fmt.Sprintf("chunkdata: manager %s:%s is already registered", e.Domain, e.ID)
}

// RegistrationClosedError is returned when a manager is registered after the
// registry layout has been finalized.
type RegistrationClosedError struct {
	Domain string
	ID     string
}

func (e *RegistrationClosedError) Error() string {
	return fmt.Sprintf("chunkdata: cannot register %s:%s, registration is closed", e.Domain, e.ID)
}

// ManagerIOError wraps an error returned by a manager while reading or writing
// its data. The remaining managers of the failing call are not invoked.
type ManagerIOError struct {
	Domain string
	ID     string
	// Op names the manager operation that failed, for example "WriteToBuffer".
	Op  string
	Err error
}

func (e *ManagerIOError) Error() string {
	return fmt.Sprintf("chunkdata: manager %s:%s failed in %s: %v", e.Domain, e.ID, e.Op, e.Err)
}

func (e *ManagerIOError) Unwrap() error {
	return e.Err
}

// PacketSizeError is returned when a chunk packet does not match the registry capacity.
type PacketSizeError struct {
	Want int
	Got  int
}

func (e *PacketSizeError) Error() string {
	return fmt.Sprintf("chunkdata: chunk packet is %d bytes, expected %d", e.Got, e.Want)
}

// ioError wraps err in a ManagerIOError for m.
func ioError(m DataManager, op string, err error) error {
	return &ManagerIOError{Domain: m.Domain(), ID: m.ID(), Op: op, Err: err}
}
