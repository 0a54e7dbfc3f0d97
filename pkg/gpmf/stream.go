package gpmf

// Header is the fixed 8-byte GPMF atom header: FourCC, base-type code,
// element size, and a big-endian repeat count.
type Header struct {
	FourCC  FourCC
	Type    BaseType
	Size    int // element byte width
	Repeat  int
}

const headerLen = 8

func parseHeader(b []byte) Header {
	return Header{
		FourCC: ParseFourCC(b[0:4]),
		Type:   BaseType(b[4]),
		Size:   int(b[5]),
		Repeat: int(b[6])<<8 | int(b[7]),
	}
}

// alignedPayloadLen returns ceil(size*repeat/4)*4, the 32-bit-aligned byte
// count occupied by an atom's payload.
func alignedPayloadLen(size, repeat int) int {
	raw := size * repeat
	return ((raw + 3) / 4) * 4
}

// Stream is one node of the parsed GPMF tree: either Nested children (a
// container atom, including the top-level DEVC) or a single decoded Value
// (a data atom). Exactly one of Nested/Value is populated.
type Stream struct {
	FourCC FourCC
	Nested []Stream
	Value  *Value

	// Time is set by the value normalizer (C5), propagated from the
	// enclosing DEVC sample's position in the MP4 GPMF track.
	Time *Timestamp
}

// IsContainer reports whether this node has nested children rather than a
// decoded value.
func (s Stream) IsContainer() bool {
	return s.Value == nil
}

// FindDirect returns the first direct child with the given FourCC, per
// §4.3's "first matching direct child wins" tie-break rule.
func (s Stream) FindDirect(fourcc FourCC) (*Stream, bool) {
	for i := range s.Nested {
		if s.Nested[i].FourCC == fourcc {
			return &s.Nested[i], true
		}
	}
	return nil, false
}

// Find descends depth-first and returns the first matching node anywhere
// in the subtree (including s itself).
func (s *Stream) Find(fourcc FourCC) (*Stream, bool) {
	if s.FourCC == fourcc {
		return s, true
	}
	for i := range s.Nested {
		if found, ok := s.Nested[i].Find(fourcc); ok {
			return found, true
		}
	}
	return nil, false
}

// FindAllDirect returns all direct children with the given FourCC, in
// order.
func (s Stream) FindAllDirect(fourcc FourCC) []*Stream {
	var out []*Stream
	for i := range s.Nested {
		if s.Nested[i].FourCC == fourcc {
			out = append(out, &s.Nested[i])
		}
	}
	return out
}

// Options configures stream parsing.
type Options struct {
	// Debug, when true, turns a truncated atom into a partial result
	// instead of aborting the whole sample (§4.3, §7).
	Debug bool
}

// Parse runs the recursive-descent stream parser (C4) over one GPMF sample
// buffer, producing its top-level Stream nodes (normally a single DEVC).
func Parse(buf []byte, opts Options) ([]Stream, error) {
	return parseContainer(buf, opts, "")
}

func parseContainer(buf []byte, opts Options, ancestorType string) ([]Stream, error) {
	var out []Stream
	pos := 0
	currentType := ancestorType

	for {
		if len(buf)-pos < headerLen {
			break
		}
		hdr := parseHeader(buf[pos:])
		if hdr.FourCC.IsInvalid() {
			break // NUL padding terminates the container, per §4.3.
		}

		payloadStart := pos + headerLen
		aligned := alignedPayloadLen(hdr.Size, hdr.Repeat)

		if payloadStart+aligned > len(buf) {
			if opts.Debug {
				return out, nil
			}
			return nil, Truncated(hdr.FourCC, pos, "atom payload extends past buffer")
		}
		payload := buf[payloadStart : payloadStart+hdr.Size*hdr.Repeat]

		node := Stream{FourCC: hdr.FourCC}

		switch {
		case hdr.Type == TypeContainer && hdr.Size*hdr.Repeat > 0:
			children, err := parseContainer(payload, opts, currentType)
			if err != nil {
				return nil, err
			}
			node.Nested = children

		case hdr.FourCC == TYPE && hdr.Type == TypeChar:
			val, err := DecodeBaseType(payload, hdr.Type, hdr.Size, hdr.Repeat)
			if err != nil {
				return nil, err
			}
			node.Value = &Value{Kind: hdr.Type, Elements: val}
			if len(val) > 0 {
				currentType = val[0].Str
			}

		case hdr.Type == TypeComplex:
			if currentType == "" {
				return nil, newErr(KindMissingType,
					"complex atom "+hdr.FourCC.String()+" has no enclosing TYPE")
			}
			records, err := DecodeComplexType(payload, currentType, hdr.Repeat)
			if err != nil {
				return nil, err
			}
			node.Value = &Value{Kind: TypeComplex, Elements: records}

		default:
			elements, err := DecodeBaseType(payload, hdr.Type, hdr.Size, hdr.Repeat)
			if err != nil {
				return nil, err
			}
			node.Value = &Value{Kind: hdr.Type, Elements: elements}
		}

		out = append(out, node)
		pos = payloadStart + aligned
	}

	return out, nil
}
