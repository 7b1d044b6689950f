// Package gguf - Lese-Funktionen
//
// Dieses Modul enthaelt die Low-Level Lese-Funktionen des Readers:
// - readTensor: Liest einen Tensor-Info Eintrag
// - readKeyValue: Liest ein Key-Value Paar mit Typ-Tag
// - readValue: Liest einen Wert ohne Typ-Tag
// - read[T]: Generische Funktion zum Lesen typisierter Werte
// - readString, readArray, readArrayData[T]
package gguf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// readTensor liest die Metadaten eines einzelnen Tensors
func (f *File) readTensor() (TensorInfo, error) {
	name, err := readString(f)
	if err != nil {
		return TensorInfo{}, err
	}

	dims, err := read[uint32](f)
	if err != nil {
		return TensorInfo{}, err
	}

	shape, err := readArrayData[uint64](f, uint64(dims))
	if err != nil {
		return TensorInfo{}, err
	}

	kind, err := read[uint32](f)
	if err != nil {
		return TensorInfo{}, err
	}

	offset, err := read[uint64](f)
	if err != nil {
		return TensorInfo{}, err
	}

	return TensorInfo{
		Name:   name,
		Shape:  shape,
		Type:   TensorType(kind),
		Offset: offset,
	}, nil
}

// readKeyValue liest ein einzelnes Key-Value Paar
func (f *File) readKeyValue() (KeyValue, error) {
	key, err := readString(f)
	if err != nil {
		return KeyValue{}, err
	}

	t, err := read[uint32](f)
	if err != nil {
		return KeyValue{}, err
	}

	kv := KeyValue{Key: key, Type: ValueType(t)}
	if kv.Type == ValueTypeArray {
		kv.ArrayType, kv.Value, err = readArray(f)
	} else {
		kv.Value, err = readValue(f, kv.Type)
	}

	if err != nil {
		return KeyValue{}, fmt.Errorf("%s: %w", key, err)
	}

	return kv, nil
}

// readValue liest einen Wert des Typs t ohne Typ-Tag
func readValue(f *File, t ValueType) (any, error) {
	switch t {
	case ValueTypeUint8:
		return read[uint8](f)
	case ValueTypeInt8:
		return read[int8](f)
	case ValueTypeUint16:
		return read[uint16](f)
	case ValueTypeInt16:
		return read[int16](f)
	case ValueTypeUint32:
		return read[uint32](f)
	case ValueTypeInt32:
		return read[int32](f)
	case ValueTypeUint64:
		return read[uint64](f)
	case ValueTypeInt64:
		return read[int64](f)
	case ValueTypeFloat32:
		return read[float32](f)
	case ValueTypeFloat64:
		return read[float64](f)
	case ValueTypeBool:
		return read[bool](f)
	case ValueTypeString:
		return readString(f)
	case ValueTypeArray:
		_, v, err := readArray(f)
		return v, err
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedValueType, t)
	}
}

// read liest einen typisierten Wert aus dem Reader
func read[T any](f *File) (t T, err error) {
	err = binary.Read(f.reader, binary.LittleEndian, &t)
	return t, err
}

// readString liest einen String aus dem Reader
func readString(f *File) (string, error) {
	n, err := read[uint64](f)
	if err != nil {
		return "", err
	}

	if n > uint64(len(f.scratch)) {
		f.scratch = make([]byte, n)
	}

	bts := f.scratch[:n]
	if _, err := io.ReadFull(f.reader, bts); err != nil {
		return "", err
	}

	return string(bts), nil
}

// readArray liest Elementtyp, Anzahl und Elemente. Skalare Elemente
// ergeben typisierte Slices, verschachtelte Arrays []any.
func readArray(f *File) (ValueType, any, error) {
	t, err := read[uint32](f)
	if err != nil {
		return 0, nil, err
	}

	n, err := read[uint64](f)
	if err != nil {
		return 0, nil, err
	}

	elem := ValueType(t)
	var v any
	switch elem {
	case ValueTypeUint8:
		v, err = readArrayData[uint8](f, n)
	case ValueTypeInt8:
		v, err = readArrayData[int8](f, n)
	case ValueTypeUint16:
		v, err = readArrayData[uint16](f, n)
	case ValueTypeInt16:
		v, err = readArrayData[int16](f, n)
	case ValueTypeUint32:
		v, err = readArrayData[uint32](f, n)
	case ValueTypeInt32:
		v, err = readArrayData[int32](f, n)
	case ValueTypeUint64:
		v, err = readArrayData[uint64](f, n)
	case ValueTypeInt64:
		v, err = readArrayData[int64](f, n)
	case ValueTypeFloat32:
		v, err = readArrayData[float32](f, n)
	case ValueTypeFloat64:
		v, err = readArrayData[float64](f, n)
	case ValueTypeBool:
		v, err = readArrayData[bool](f, n)
	case ValueTypeString:
		v, err = readArrayWith(f, n, readString)
	case ValueTypeArray:
		v, err = readArrayWith(f, n, func(f *File) (any, error) {
			return readValue(f, ValueTypeArray)
		})
	default:
		err = fmt.Errorf("%w: %d", ErrUnsupportedValueType, t)
	}

	return elem, v, err
}

// readArrayData liest n Werte fester Breite in Bloecken von hoechstens 64Ki Elementen
func readArrayData[T any](f *File, n uint64) ([]T, error) {
	s := make([]T, 0, min(n, 1<<16))
	for n > 0 {
		chunk := make([]T, min(n, 1<<16))
		if err := binary.Read(f.reader, binary.LittleEndian, chunk); err != nil {
			return nil, err
		}

		s = append(s, chunk...)
		n -= uint64(len(chunk))
	}

	return s, nil
}

// readArrayWith liest n Werte mit einer Lese-Funktion
func readArrayWith[T any](f *File, n uint64, fn func(*File) (T, error)) ([]T, error) {
	s := make([]T, 0, min(n, 1<<20))
	for range n {
		e, err := fn(f)
		if err != nil {
			return nil, err
		}

		s = append(s, e)
	}

	return s, nil
}
