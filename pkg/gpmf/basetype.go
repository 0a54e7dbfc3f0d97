package gpmf

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// BaseType is the single-byte code classifying a GPMF atom payload's
// primitive element, per the GoPro GPMF wire format.
type BaseType byte

// Base-type codes, as published in GoPro's GPMF reference.
const (
	TypeContainer  BaseType = 0x00 // nested atom, handled by the stream parser directly
	TypeInt8       BaseType = 'b'
	TypeUint8      BaseType = 'B'
	TypeChar       BaseType = 'c'
	TypeFloat64    BaseType = 'd'
	TypeFloat32    BaseType = 'f'
	TypeFourCC     BaseType = 'F'
	TypeGUID       BaseType = 'G'
	TypeInt64      BaseType = 'j'
	TypeUint64     BaseType = 'J'
	TypeInt32      BaseType = 'l'
	TypeUint32     BaseType = 'L'
	TypeQ1516      BaseType = 'q' // Q15.16 fixed point
	TypeQ3132      BaseType = 'Q' // Q31.32 fixed point
	TypeInt16      BaseType = 's'
	TypeUint16     BaseType = 'S'
	TypeUTCDate    BaseType = 'U' // yymmddhhmmss.sss ASCII
	TypeComplex    BaseType = '?' // shape comes from the nearest enclosing TYPE atom
)

// Size returns the natural byte width of a scalar of base type t (1 for a
// char, 4 for a FourCC, 16 for a GUID), or 0 for the container, UTC-date
// and composite types, whose width comes from the element-size field.
func (t BaseType) Size() int {
	switch t {
	case TypeInt8, TypeUint8, TypeChar:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32, TypeFourCC, TypeQ1516:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64, TypeQ3132:
		return 8
	case TypeGUID:
		return 16
	default:
		return 0
	}
}

// Element is one decoded leaf value. Exactly one of Number/Str/FourCC/GUID
// is meaningful, selected by the Kind of the enclosing Value; Record holds
// the per-field sub-elements of a composite-type row.
type Element struct {
	Number float64
	Str    string
	FourCC FourCC
	GUID   [16]byte
	Record []Element
}

// Value is the decoded payload of one GPMF atom: a list of Elements
// (length `repeat`, or `repeat` composite rows) plus the base type that
// produced them.
type Value struct {
	Kind     BaseType
	Elements []Element
}

// Numbers extracts the numeric elements of v, for base types where Number
// is meaningful. Non-numeric kinds return an empty slice.
func (v Value) Numbers() []float64 {
	if !isNumeric(v.Kind) {
		return nil
	}
	out := make([]float64, len(v.Elements))
	for i, e := range v.Elements {
		out[i] = e.Number
	}
	return out
}

func isNumeric(t BaseType) bool {
	switch t {
	case TypeInt8, TypeUint8, TypeInt16, TypeUint16, TypeInt32, TypeUint32,
		TypeInt64, TypeUint64, TypeFloat32, TypeFloat64, TypeQ1516, TypeQ3132:
		return true
	default:
		return false
	}
}

// DecodeBaseType decodes `repeat` elements of base type `bt`, each `size`
// bytes wide, from the front of payload. Byte order is big-endian
// throughout, per the wire format.
func DecodeBaseType(payload []byte, bt BaseType, size, repeat int) ([]Element, error) {
	elements := make([]Element, 0, repeat)

	switch bt {
	case TypeChar:
		// A char payload is one ASCII string of `repeat` bytes (trailing
		// NULs trimmed), not `repeat` one-byte elements.
		s := trimTrailingNUL(payload[:repeat])
		return []Element{{Str: s}}, nil

	case TypeUTCDate:
		s := trimTrailingNUL(payload[:size*repeat])
		for i := 0; i < repeat; i++ {
			chunk := s
			if len(s) >= size {
				chunk = s[i*size : min(len(s), (i+1)*size)]
			}
			t, err := parseUTCDate(chunk)
			if err != nil {
				return nil, wrapErr(KindDecodeTimestamp, "malformed UTC date '"+chunk+"'", err)
			}
			elements = append(elements, Element{Str: t.Format(time.RFC3339Nano)})
		}
		return elements, nil

	case TypeGUID:
		for i := 0; i < repeat; i++ {
			var g [16]byte
			copy(g[:], payload[i*size:i*size+size])
			elements = append(elements, Element{GUID: g})
		}
		return elements, nil

	case TypeFourCC:
		for i := 0; i < repeat; i++ {
			elements = append(elements, Element{FourCC: ParseFourCC(payload[i*size:])})
		}
		return elements, nil
	}

	if !isNumeric(bt) {
		return nil, newErr(KindDecodeOutOfRange, fmt.Sprintf("unsupported base type %q", byte(bt)))
	}

	for i := 0; i < repeat; i++ {
		chunk := payload[i*size : i*size+size]
		n, err := decodeNumber(bt, chunk)
		if err != nil {
			return nil, err
		}
		elements = append(elements, Element{Number: n})
	}
	return elements, nil
}

func decodeNumber(bt BaseType, b []byte) (float64, error) {
	switch bt {
	case TypeInt8:
		return float64(int8(b[0])), nil
	case TypeUint8:
		return float64(b[0]), nil
	case TypeInt16:
		return float64(int16(binary.BigEndian.Uint16(b))), nil
	case TypeUint16:
		return float64(binary.BigEndian.Uint16(b)), nil
	case TypeInt32:
		return float64(int32(binary.BigEndian.Uint32(b))), nil
	case TypeUint32:
		return float64(binary.BigEndian.Uint32(b)), nil
	case TypeInt64:
		return float64(int64(binary.BigEndian.Uint64(b))), nil
	case TypeUint64:
		return float64(binary.BigEndian.Uint64(b)), nil
	case TypeFloat32:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case TypeFloat64:
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case TypeQ1516:
		raw := int32(binary.BigEndian.Uint32(b))
		return float64(raw) / 65536.0, nil
	case TypeQ3132:
		raw := int64(binary.BigEndian.Uint64(b))
		return float64(raw) / 4294967296.0, nil
	default:
		return 0, newErr(KindDecodeOutOfRange, fmt.Sprintf("not a numeric base type %q", byte(bt)))
	}
}

// ParseUTCDate parses the fixed GPMF GPSU/STMP form yymmddhhmmss.sss into a
// civil datetime. Exported so GPS/sensor extractors can decode GPSU without
// duplicating the layout.
func ParseUTCDate(s string) (time.Time, error) {
	return parseUTCDate(s)
}

// parseUTCDate parses the fixed GPMF GPSU/STMP form yymmddhhmmss.sss.
func parseUTCDate(s string) (time.Time, error) {
	if len(s) < 13 {
		return time.Time{}, fmt.Errorf("short UTC date %q", s)
	}
	// Two-digit year is 2000-relative on GoPro devices.
	layout := "060102150405.000"
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func trimTrailingNUL(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
