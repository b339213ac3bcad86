package rlp

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"reflect"

	"github.com/holiman/uint256"
)

// Encoder is implemented by types that want to control their own RLP
// encoding.
type Encoder interface {
	EncodeRLP(io.Writer) error
}

// Encode writes the RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	if enc, ok := val.(Encoder); ok {
		return enc.EncodeRLP(w)
	}
	buf := new(bytes.Buffer)
	if err := encodeValue(buf, reflect.ValueOf(val)); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// EncodeToBytes returns the RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := Encode(buf, val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeToReader returns a reader from which the RLP encoding of val can be
// read, along with its total size.
func EncodeToReader(val interface{}) (size int, r io.Reader, err error) {
	b, err := EncodeToBytes(val)
	if err != nil {
		return 0, nil, err
	}
	return len(b), bytes.NewReader(b), nil
}

func encodeValue(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		return fmt.Errorf("rlp: cannot encode invalid value")
	}
	if v.CanInterface() {
		if enc, ok := v.Interface().(Encoder); ok {
			var b bytes.Buffer
			if err := enc.EncodeRLP(&b); err != nil {
				return err
			}
			buf.Write(b.Bytes())
			return nil
		}
	}
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return fmt.Errorf("rlp: cannot encode nil pointer")
		}
		return encodeValue(buf, v.Elem())
	case reflect.Bool:
		if v.Bool() {
			buf.WriteByte(0x01)
		} else {
			buf.WriteByte(0x80)
		}
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUint(buf, v.Uint())
	case reflect.String:
		return encodeBytes(buf, []byte(v.String()))
	case reflect.Slice, reflect.Array:
		if u, ok := v.Interface().(uint256.Int); ok {
			return encodeUint256(buf, &u)
		}
		if v.Kind() == reflect.Array && v.Type().Elem().Kind() == reflect.Uint8 {
			return encodeByteArray(buf, v)
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := v.Bytes()
			return encodeBytes(buf, b)
		}
		return encodeList(buf, v)
	case reflect.Struct:
		if bi, ok := v.Interface().(big.Int); ok {
			return encodeBigInt(buf, &bi)
		}
		return encodeStruct(buf, v)
	case reflect.Interface:
		if v.IsNil() {
			return fmt.Errorf("rlp: cannot encode nil interface")
		}
		return encodeValue(buf, v.Elem())
	default:
		return fmt.Errorf("rlp: type %v is not RLP-serializable", v.Type())
	}
}

func encodeByteArray(buf *bytes.Buffer, v reflect.Value) error {
	b := make([]byte, v.Len())
	reflect.Copy(reflect.ValueOf(b), v)
	return encodeBytes(buf, b)
}

func encodeBytes(buf *bytes.Buffer, b []byte) error {
	if len(b) == 1 && b[0] < 0x80 {
		buf.WriteByte(b[0])
		return nil
	}
	writeHeader(buf, false, len(b))
	buf.Write(b)
	return nil
}

func encodeUint(buf *bytes.Buffer, i uint64) error {
	if i == 0 {
		buf.WriteByte(0x80)
		return nil
	}
	if i < 0x80 {
		buf.WriteByte(byte(i))
		return nil
	}
	var b [8]byte
	binaryBigEndianPut(b[:], i)
	start := 0
	for start < 8 && b[start] == 0 {
		start++
	}
	return encodeBytes(buf, b[start:])
}

func binaryBigEndianPut(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func encodeBigInt(buf *bytes.Buffer, i *big.Int) error {
	if i == nil {
		buf.WriteByte(0x80)
		return nil
	}
	if i.Sign() == -1 {
		return fmt.Errorf("rlp: cannot encode negative *big.Int")
	}
	if i.Sign() == 0 {
		buf.WriteByte(0x80)
		return nil
	}
	return encodeBytes(buf, i.Bytes())
}

func encodeUint256(buf *bytes.Buffer, i *uint256.Int) error {
	if i == nil || i.IsZero() {
		buf.WriteByte(0x80)
		return nil
	}
	return encodeBytes(buf, i.Bytes())
}

func encodeList(buf *bytes.Buffer, v reflect.Value) error {
	var inner bytes.Buffer
	for i := 0; i < v.Len(); i++ {
		if err := encodeValue(&inner, v.Index(i)); err != nil {
			return err
		}
	}
	writeHeader(buf, true, inner.Len())
	buf.Write(inner.Bytes())
	return nil
}

func encodeStruct(buf *bytes.Buffer, v reflect.Value) error {
	t := v.Type()
	var inner bytes.Buffer
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		tag := f.Tag.Get("rlp")
		if tag == "-" {
			continue
		}
		fv := v.Field(i)
		if tag == "tail" {
			// Optional trailing field: omit entirely when zero-valued, so
			// that older-version peers and this version can share a struct
			// definition (e.g. Status.ForkID for eth<64).
			if fv.IsZero() {
				continue
			}
		}
		if fv.Kind() == reflect.Ptr && fv.IsNil() {
			switch reflect.New(fv.Type().Elem()).Interface().(type) {
			case *big.Int, *uint256.Int:
				inner.WriteByte(0x80)
				continue
			}
		}
		if err := encodeValue(&inner, fv); err != nil {
			return fmt.Errorf("rlp: field %s: %w", f.Name, err)
		}
	}
	writeHeader(buf, true, inner.Len())
	buf.Write(inner.Bytes())
	return nil
}

func writeHeader(buf *bytes.Buffer, list bool, size int) {
	offset := byte(0x80)
	if list {
		offset = 0xC0
	}
	if size < 56 {
		buf.WriteByte(offset + byte(size))
		return
	}
	sizebytes := putSize(size)
	buf.WriteByte(offset + 55 + byte(len(sizebytes)))
	buf.Write(sizebytes)
}

func putSize(size int) []byte {
	var b [8]byte
	binaryBigEndianPut(b[:], uint64(size))
	start := 0
	for start < 7 && b[start] == 0 {
		start++
	}
	return b[start:]
}

// IntSize returns the number of bytes that the RLP encoding of a
// non-negative integer x occupies.
func IntSize(x uint64) int {
	if x == 0 {
		return 1
	}
	n := 0
	for v := x; v > 0; v >>= 8 {
		n++
	}
	if x < 0x80 {
		return 1
	}
	return 1 + n
}
