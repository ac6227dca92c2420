// Package net encodes the fixed-layout binary records exchanged with
// clients. Records are plain structs whose fields carry a `wire` tag naming
// the big-endian encoding: u8, u16, u32, f32 or bool.
package net

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
)

const tagName = "wire"

// ErrTrailingBytes is returned by Unmarshal when data is longer than the
// record.
var ErrTrailingBytes = errors.New("trailing bytes after record")

// Append encodes a record struct onto buf.
func Append(buf *bytes.Buffer, v any) error {
	rv, err := structValue(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	t := rv.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		if err := WriteField(buf, tag, rv.Field(i).Interface()); err != nil {
			return fmt.Errorf("marshal field %s: %w", field.Name, err)
		}
	}
	return nil
}

// Unmarshal decodes data into a pointer to a record struct. Data must hold
// exactly one record.
func Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unmarshal: expected non-nil pointer, got %T", v)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal: expected pointer to struct, got pointer to %s", rv.Kind())
	}

	r := bytes.NewReader(data)
	t := rv.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}

		val, err := ReadField(r, tag)
		if err != nil {
			return fmt.Errorf("unmarshal field %s: %w", field.Name, err)
		}

		fv := rv.Field(i)
		fval := reflect.ValueOf(val)
		if !fval.Type().AssignableTo(fv.Type()) {
			return fmt.Errorf("unmarshal field %s: cannot assign %s to %s", field.Name, fval.Type(), fv.Type())
		}
		fv.Set(fval)
	}

	if r.Len() > 0 {
		return fmt.Errorf("unmarshal %s: %d bytes left: %w", t.Name(), r.Len(), ErrTrailingBytes)
	}
	return nil
}

// Size returns the encoded size of a record type.
func Size(v any) (int, error) {
	rv, err := structValue(v)
	if err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}

	t := rv.Type()
	total := 0
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		n := fieldSize(tag)
		if n < 0 {
			return 0, fmt.Errorf("size field %s: unknown field tag: %q", field.Name, tag)
		}
		total += n
	}
	return total, nil
}

// MustSize is like Size but panics on an invalid record type. It is meant
// for package-level size declarations.
func MustSize(v any) int {
	n, err := Size(v)
	if err != nil {
		panic(err)
	}
	return n
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("expected struct, got %s", rv.Kind())
	}
	return rv, nil
}
