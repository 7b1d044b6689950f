// Package gguf - GGUF Werttypen und Typ-Inferenz
//
// Dieses Modul definiert die Datentyp-Tags der KV-Sektion:
// - ValueType: Typ-Tag eines Metadaten-Werts (uint32 auf der Platte)
// - TypeOf: Leitet den Typ-Tag aus einem Go-Wert ab
// - Fehler fuer nicht unterstuetzte Werte und Arrays
package gguf

import (
	"errors"
	"fmt"
	"reflect"
)

// ValueType ist der Typ-Tag eines Metadaten-Werts
type ValueType uint32

// Werttypen in der Reihenfolge des Dateiformats
const (
	ValueTypeUint8 ValueType = iota
	ValueTypeInt8
	ValueTypeUint16
	ValueTypeInt16
	ValueTypeUint32
	ValueTypeInt32
	ValueTypeFloat32
	ValueTypeBool
	ValueTypeString
	ValueTypeArray
	ValueTypeUint64
	ValueTypeInt64
	ValueTypeFloat64
)

var (
	// ErrUnsupportedValueType wird zurueckgegeben wenn fuer einen Wert kein Typ-Tag existiert
	ErrUnsupportedValueType = errors.New("unsupported metadata value type")

	// ErrMixedArrayTypes wird zurueckgegeben wenn Array-Elemente verschiedene Typen haben
	ErrMixedArrayTypes = errors.New("all items in a GGUF array should be of the same type")

	// ErrNotSequence wird zurueckgegeben wenn AddArray keine Sequenz erhaelt
	ErrNotSequence = errors.New("value must be a sequence for array type")

	// ErrInvalidValue wird zurueckgegeben wenn ein Wert nicht zu seinem Tag passt
	ErrInvalidValue = errors.New("invalid GGUF metadata value type or value")
)

// String gibt den Namen des Werttyps zurueck
func (t ValueType) String() string {
	switch t {
	case ValueTypeUint8:
		return "uint8"
	case ValueTypeInt8:
		return "int8"
	case ValueTypeUint16:
		return "uint16"
	case ValueTypeInt16:
		return "int16"
	case ValueTypeUint32:
		return "uint32"
	case ValueTypeInt32:
		return "int32"
	case ValueTypeFloat32:
		return "float32"
	case ValueTypeBool:
		return "bool"
	case ValueTypeString:
		return "string"
	case ValueTypeArray:
		return "array"
	case ValueTypeUint64:
		return "uint64"
	case ValueTypeInt64:
		return "int64"
	case ValueTypeFloat64:
		return "float64"
	default:
		return fmt.Sprintf("ValueType(%d)", uint32(t))
	}
}

// TypeOf leitet den Typ-Tag eines Werts nach fester Prioritaet ab:
// String/Bytes, Sequenz, Gleitkomma, Bool, Ganzzahl.
//
// 64-Bit Typen werden nicht abgeleitet, dafuer gibt es AddInt64, AddUint64
// und AddFloat64.
func TypeOf(v any) (ValueType, error) {
	switch v.(type) {
	case string, []byte:
		return ValueTypeString, nil
	}

	if v != nil {
		switch reflect.TypeOf(v).Kind() {
		case reflect.Slice, reflect.Array:
			return ValueTypeArray, nil
		}
	}

	switch v.(type) {
	case float32, float64:
		return ValueTypeFloat32, nil
	case bool:
		return ValueTypeBool, nil
	case int, int32, TokenType:
		return ValueTypeInt32, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedValueType, v)
	}
}
