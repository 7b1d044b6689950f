// Package gguf - KeyValue Zugriffs-Methoden
//
// Dieses Modul enthaelt den dekodierten KV-Eintrag und seine Accessoren:
// - KeyValue: Schluessel, Typ-Tag, Elementtyp bei Arrays, Wert
// - Uint/Int/Float/Bool/String: Skalare Zugriffe mit Nullwert bei falschem Typ
// - Strings/Len: Array-Zugriffe
package gguf

import (
	"reflect"
)

// KeyValue ist ein dekodierter Eintrag der KV-Sektion
type KeyValue struct {
	Key  string
	Type ValueType
	// ArrayType ist der Elementtyp wenn Type ValueTypeArray ist
	ArrayType ValueType
	Value     any
}

// Valid prueft ob der Eintrag gefunden wurde
func (kv KeyValue) Valid() bool {
	return kv.Key != "" && kv.Value != nil
}

// Uint gibt vorzeichenlose und nicht-negative Ganzzahlen als uint64 zurueck
func (kv KeyValue) Uint() uint64 {
	switch v := kv.Value.(type) {
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	}

	if i, ok := kv.int(); ok && i >= 0 {
		return uint64(i)
	}

	return 0
}

// Int gibt vorzeichenbehaftete Ganzzahlen als int64 zurueck
func (kv KeyValue) Int() int64 {
	i, _ := kv.int()
	return i
}

func (kv KeyValue) int() (int64, bool) {
	switch v := kv.Value.(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// Float gibt Gleitkommawerte als float64 zurueck
func (kv KeyValue) Float() float64 {
	switch v := kv.Value.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

// Bool gibt einen bool-Wert zurueck
func (kv KeyValue) Bool() bool {
	b, _ := kv.Value.(bool)
	return b
}

// String gibt einen String-Wert zurueck
func (kv KeyValue) String() string {
	s, _ := kv.Value.(string)
	return s
}

// Strings gibt ein String-Array zurueck
func (kv KeyValue) Strings() []string {
	s, _ := kv.Value.([]string)
	return s
}

// Len gibt die Laenge eines Arrays zurueck, 0 fuer Skalare
func (kv KeyValue) Len() int {
	if kv.Type != ValueTypeArray || kv.Value == nil {
		return 0
	}

	return reflect.ValueOf(kv.Value).Len()
}
