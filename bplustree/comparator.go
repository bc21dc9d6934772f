package bplus

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Comparators for the key encodings the schema layer produces. The tree
// treats keys as opaque bytes of the declared length; ordering comes entirely
// from the comparator chosen at construction.

// CompareBytes orders keys as raw bytes.
func CompareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// CompareInt32 orders 4-byte little-endian signed integers.
func CompareInt32(a, b []byte) int {
	av := int32(binary.LittleEndian.Uint32(a))
	bv := int32(binary.LittleEndian.Uint32(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}

// CompareInt64 orders 8-byte little-endian signed integers.
func CompareInt64(a, b []byte) int {
	av := int64(binary.LittleEndian.Uint64(a))
	bv := int64(binary.LittleEndian.Uint64(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}

// CompareFloat64 orders 8-byte little-endian IEEE 754 doubles.
func CompareFloat64(a, b []byte) int {
	av := math.Float64frombits(binary.LittleEndian.Uint64(a))
	bv := math.Float64frombits(binary.LittleEndian.Uint64(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}

// CompareText orders fixed-width text columns with trailing spaces and NULs
// insignificant.
func CompareText(a, b []byte) int {
	return bytes.Compare(trimPadding(a), trimPadding(b))
}

func trimPadding(s []byte) []byte {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || s[end-1] == 0) {
		end--
	}
	return s[:end]
}
