package wiproto

import "errors"

var (
	// ErrMalformedFrame is returned when bytes cannot be parsed as a frame
	// at all (bad shape, not ASCII, missing terminator).
	ErrMalformedFrame = errors.New("wiproto: malformed frame")

	// ErrCrcMismatch is returned when an ingress frame carries a CRC
	// suffix that disagrees with the recomputed checksum.
	ErrCrcMismatch = errors.New("wiproto: crc mismatch")
)
