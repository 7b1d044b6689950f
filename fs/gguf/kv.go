// Package gguf - KV Metadaten-Encoder
//
// Dieses Modul enthaelt die Serialisierung der KV-Sektion:
// - AddUint8 bis AddFloat64, AddBool: Skalare mit explizitem Typ-Tag
// - AddString: Laengen-praefixierter String (leere Strings werden uebersprungen)
// - AddArray: Homogenes Array mit abgeleitetem Elementtyp
// - encodeValue: Rekursive Kodierung eines Werts
//
// Schluessel tragen keinen Typ-Tag, nur Werte.
package gguf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"reflect"
)

// AddUint8 fuegt einen uint8-Wert hinzu
func (w *Writer) AddUint8(key string, val uint8) { w.addScalar(key, ValueTypeUint8, val) }

// AddInt8 fuegt einen int8-Wert hinzu
func (w *Writer) AddInt8(key string, val int8) { w.addScalar(key, ValueTypeInt8, val) }

// AddUint16 fuegt einen uint16-Wert hinzu
func (w *Writer) AddUint16(key string, val uint16) { w.addScalar(key, ValueTypeUint16, val) }

// AddInt16 fuegt einen int16-Wert hinzu
func (w *Writer) AddInt16(key string, val int16) { w.addScalar(key, ValueTypeInt16, val) }

// AddUint32 fuegt einen uint32-Wert hinzu
func (w *Writer) AddUint32(key string, val uint32) { w.addScalar(key, ValueTypeUint32, val) }

// AddInt32 fuegt einen int32-Wert hinzu
func (w *Writer) AddInt32(key string, val int32) { w.addScalar(key, ValueTypeInt32, val) }

// AddFloat32 fuegt einen float32-Wert hinzu
func (w *Writer) AddFloat32(key string, val float32) { w.addScalar(key, ValueTypeFloat32, val) }

// AddUint64 fuegt einen uint64-Wert hinzu
func (w *Writer) AddUint64(key string, val uint64) { w.addScalar(key, ValueTypeUint64, val) }

// AddInt64 fuegt einen int64-Wert hinzu
func (w *Writer) AddInt64(key string, val int64) { w.addScalar(key, ValueTypeInt64, val) }

// AddFloat64 fuegt einen float64-Wert hinzu
func (w *Writer) AddFloat64(key string, val float64) { w.addScalar(key, ValueTypeFloat64, val) }

// AddBool fuegt einen bool-Wert hinzu
func (w *Writer) AddBool(key string, val bool) { w.addScalar(key, ValueTypeBool, val) }

// AddString fuegt einen String hinzu. Leere Strings werden nicht geschrieben.
func (w *Writer) AddString(key, val string) {
	if len(val) == 0 {
		return
	}

	w.addScalar(key, ValueTypeString, val)
}

// AddArray fuegt ein Array hinzu. Alle Elemente muessen denselben
// abgeleiteten Typ haben, siehe TypeOf.
func (w *Writer) AddArray(key string, val any) error {
	if !isSequence(val) {
		return fmt.Errorf("%s: %w", key, ErrNotSequence)
	}

	return w.add(key, ValueTypeArray, val)
}

// KVCount gibt die Anzahl der bisher kodierten KV-Eintraege zurueck
func (w *Writer) KVCount() uint64 {
	return w.kvCount
}

// addScalar merkt sich Fehler von Skalaren, die keinen Fehler zurueckgeben
func (w *Writer) addScalar(key string, vtype ValueType, val any) {
	if err := w.add(key, vtype, val); err != nil {
		w.setErr(err)
	}
}

// add kodiert einen Eintrag in einen eigenen Puffer und haengt ihn erst
// bei Erfolg an die KV-Sektion an
func (w *Writer) add(key string, vtype ValueType, val any) error {
	if err := w.accumulating(); err != nil {
		return err
	}

	var b bytes.Buffer
	writeString(&b, key)
	if err := encodeValue(&b, vtype, val, true); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	slog.Debug(key, "type", vtype)

	w.kv.Write(b.Bytes())
	w.kvCount++
	return nil
}

// writeString schreibt Laenge (uint64) und UTF-8 Bytes
func writeString(b *bytes.Buffer, s string) {
	binary.Write(b, binary.LittleEndian, uint64(len(s))) //nolint:errcheck
	b.WriteString(s)
}

// encodeValue kodiert einen Wert mit optionalem Typ-Tag
func encodeValue(b *bytes.Buffer, vtype ValueType, val any, withType bool) error {
	if withType {
		binary.Write(b, binary.LittleEndian, uint32(vtype)) //nolint:errcheck
	}

	switch vtype {
	case ValueTypeString:
		switch v := val.(type) {
		case string:
			writeString(b, v)
		case []byte:
			writeString(b, string(v))
		default:
			return fmt.Errorf("%w: %T as %s", ErrInvalidValue, val, vtype)
		}
		return nil
	case ValueTypeArray:
		return encodeArray(b, val)
	}

	v, err := scalar(vtype, val)
	if err != nil {
		return err
	}

	return binary.Write(b, binary.LittleEndian, v)
}

// encodeArray kodiert Elementtyp, Anzahl und die Elemente ohne Typ-Tag
func encodeArray(b *bytes.Buffer, val any) error {
	if !isSequence(val) {
		return fmt.Errorf("%w: %T as %s", ErrInvalidValue, val, ValueTypeArray)
	}

	rv := reflect.ValueOf(val)
	if rv.Len() == 0 {
		return fmt.Errorf("%w: empty array", ErrInvalidValue)
	}

	ltype, err := TypeOf(rv.Index(0).Interface())
	if err != nil {
		return err
	}

	for i := 1; i < rv.Len(); i++ {
		t, err := TypeOf(rv.Index(i).Interface())
		if err != nil {
			return err
		}

		if t != ltype {
			return ErrMixedArrayTypes
		}
	}

	binary.Write(b, binary.LittleEndian, uint32(ltype))   //nolint:errcheck
	binary.Write(b, binary.LittleEndian, uint64(rv.Len())) //nolint:errcheck
	for i := range rv.Len() {
		if err := encodeValue(b, ltype, rv.Index(i).Interface(), false); err != nil {
			return err
		}
	}

	return nil
}

// scalar bringt einen Wert in die feste Breite seines Typ-Tags
func scalar(vtype ValueType, val any) (any, error) {
	switch vtype {
	case ValueTypeFloat32:
		switch v := val.(type) {
		case float32:
			return v, nil
		case float64:
			return float32(v), nil
		}
	case ValueTypeInt32:
		switch v := val.(type) {
		case int32:
			return v, nil
		case TokenType:
			return int32(v), nil
		case int:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %d overflows int32", ErrInvalidValue, v)
			}
			return int32(v), nil
		}
	case ValueTypeUint8:
		if v, ok := val.(uint8); ok {
			return v, nil
		}
	case ValueTypeInt8:
		if v, ok := val.(int8); ok {
			return v, nil
		}
	case ValueTypeUint16:
		if v, ok := val.(uint16); ok {
			return v, nil
		}
	case ValueTypeInt16:
		if v, ok := val.(int16); ok {
			return v, nil
		}
	case ValueTypeUint32:
		if v, ok := val.(uint32); ok {
			return v, nil
		}
	case ValueTypeUint64:
		if v, ok := val.(uint64); ok {
			return v, nil
		}
	case ValueTypeInt64:
		if v, ok := val.(int64); ok {
			return v, nil
		}
	case ValueTypeFloat64:
		if v, ok := val.(float64); ok {
			return v, nil
		}
	case ValueTypeBool:
		if v, ok := val.(bool); ok {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: %T as %s", ErrInvalidValue, val, vtype)
}

// isSequence prueft ob ein Wert ein Slice oder Array ist (Strings und []byte ausgenommen)
func isSequence(val any) bool {
	if val == nil {
		return false
	}

	switch val.(type) {
	case string, []byte:
		return false
	}

	switch reflect.TypeOf(val).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}
