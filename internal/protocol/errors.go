package protocol

import "errors"

var (
	ErrPayloadEncoding    = errors.New("protocol: payload json")
	ErrCompressedTooLarge = errors.New("protocol: decompressed payload too large")
)
