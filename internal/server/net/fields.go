package net

import (
	"encoding/binary"
	"fmt"
	"io"
)

func ReadU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func ReadU16(r io.Reader) (uint16, error) {
	var val uint16
	if err := binary.Read(r, binary.BigEndian, &val); err != nil {
		return 0, err
	}
	return val, nil
}

func ReadU32(r io.Reader) (uint32, error) {
	var val uint32
	if err := binary.Read(r, binary.BigEndian, &val); err != nil {
		return 0, err
	}
	return val, nil
}

func ReadF32(r io.Reader) (float32, error) {
	var val float32
	if err := binary.Read(r, binary.BigEndian, &val); err != nil {
		return 0, err
	}
	return val, nil
}

func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadU8(r)
	return b != 0, err
}

// fieldSize returns the encoded width of a tag, or -1 for an unknown tag.
func fieldSize(tag string) int {
	switch tag {
	case "u8", "bool":
		return 1
	case "u16":
		return 2
	case "u32", "f32":
		return 4
	default:
		return -1
	}
}

func WriteField(w io.Writer, tag string, val any) error {
	switch tag {
	case "u8":
		return binary.Write(w, binary.BigEndian, val.(uint8))
	case "u16":
		return binary.Write(w, binary.BigEndian, val.(uint16))
	case "u32":
		return binary.Write(w, binary.BigEndian, val.(uint32))
	case "f32":
		return binary.Write(w, binary.BigEndian, val.(float32))
	case "bool":
		if val.(bool) {
			return binary.Write(w, binary.BigEndian, uint8(1))
		}
		return binary.Write(w, binary.BigEndian, uint8(0))
	default:
		return fmt.Errorf("unknown field tag: %q", tag)
	}
}

func ReadField(r io.Reader, tag string) (any, error) {
	switch tag {
	case "u8":
		return ReadU8(r)
	case "u16":
		return ReadU16(r)
	case "u32":
		return ReadU32(r)
	case "f32":
		return ReadF32(r)
	case "bool":
		return ReadBool(r)
	default:
		return nil, fmt.Errorf("unknown field tag: %q", tag)
	}
}
