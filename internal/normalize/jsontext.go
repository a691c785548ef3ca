package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"job-ingest-go/internal/models"
)

// CanonicalJSON encodes v the way Python's json.dumps does by default:
// ", " and ": " separators, non-ASCII escaped as \uXXXX, floats in repr
// form. Map keys are sorted so equal values always encode equally.
func CanonicalJSON(v any) (string, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, reflect.ValueOf(v)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	civilDateType = reflect.TypeOf(civil.Date{})
	timeType      = reflect.TypeOf(time.Time{})
	numberType    = reflect.TypeOf(json.Number(""))
)

func encodeValue(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}
	if v.CanInterface() && models.IsMissing(v.Interface()) {
		buf.WriteString("null")
		return nil
	}

	switch v.Type() {
	case civilDateType:
		writeString(buf, v.Interface().(civil.Date).String())
		return nil
	case timeType:
		writeString(buf, v.Interface().(time.Time).Format(isoTimeLayout))
		return nil
	case numberType:
		buf.WriteString(v.String())
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		return encodeValue(buf, v.Elem())
	case reflect.Bool:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case reflect.String:
		writeString(buf, v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		buf.WriteString(pyFloat(v.Float()))
	case reflect.Slice, reflect.Array:
		buf.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := encodeValue(buf, v.Index(i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case reflect.Map:
		return encodeMap(buf, v)
	default:
		return encodeViaJSON(buf, v)
	}
	return nil
}

func encodeMap(buf *bytes.Buffer, v reflect.Value) error {
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := iter.Key()
		for k.Kind() == reflect.Interface {
			k = k.Elem()
		}
		var key string
		if k.Kind() == reflect.String {
			key = k.String()
		} else {
			key = fmt.Sprint(k.Interface())
		}
		entries = append(entries, entry{key: key, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeString(buf, e.key)
		buf.WriteString(": ")
		if err := encodeValue(buf, e.val); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// encodeViaJSON handles structs and other types through their JSON form.
func encodeViaJSON(buf *bytes.Buffer, v reflect.Value) error {
	if !v.CanInterface() {
		return fmt.Errorf("cannot encode unexported value of type %s", v.Type())
	}
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.Type(), err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("decode %s: %w", v.Type(), err)
	}
	return encodeValue(buf, reflect.ValueOf(generic))
}

const hexDigits = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r < 0x20:
				writeEscape(buf, uint16(r))
			case r < 0x7f:
				buf.WriteRune(r)
			case r <= 0xffff:
				writeEscape(buf, uint16(r))
			default:
				r -= 0x10000
				writeEscape(buf, uint16(0xd800+(r>>10)))
				writeEscape(buf, uint16(0xdc00+(r&0x3ff)))
			}
		}
	}
	buf.WriteByte('"')
}

func writeEscape(buf *bytes.Buffer, u uint16) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[u>>12&0xf])
	buf.WriteByte(hexDigits[u>>8&0xf])
	buf.WriteByte(hexDigits[u>>4&0xf])
	buf.WriteByte(hexDigits[u&0xf])
}

// pyFloat formats f like Python's float repr: shortest round-trip digits,
// a trailing ".0" on integral values, exponent form outside [1e-4, 1e16).
func pyFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(f)
	if abs >= 1e16 || abs < 1e-4 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
