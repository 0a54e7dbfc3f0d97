package gpmf

import "fmt"

// DecodeComplexType decodes `repeat` fixed-shape composite records from
// payload, given the ASCII TYPE descriptor string (each character names a
// base type for one field, e.g. "LLLLLBBSSS"). Variable-shape tails are
// not supported — every record has exactly len(typeDescriptor) fields.
func DecodeComplexType(payload []byte, typeDescriptor string, repeat int) ([]Element, error) {
	if typeDescriptor == "" {
		return nil, newErr(KindMissingType, "composite atom has no TYPE descriptor")
	}

	fieldSizes := make([]int, len(typeDescriptor))
	recordSize := 0
	for i, c := range typeDescriptor {
		bt := BaseType(c)
		size := bt.Size()
		if size == 0 {
			return nil, newErr(KindDecodeOutOfRange,
				fmt.Sprintf("TYPE descriptor field %q has no fixed size", string(c)))
		}
		fieldSizes[i] = size
		recordSize += size
	}

	records := make([]Element, 0, repeat)
	offset := 0
	for r := 0; r < repeat; r++ {
		if offset+recordSize > len(payload) {
			return nil, Truncated(TYPE, offset, "composite record runs past payload")
		}
		fields := make([]Element, len(typeDescriptor))
		for i, c := range typeDescriptor {
			bt := BaseType(c)
			size := fieldSizes[i]
			decoded, err := DecodeBaseType(payload[offset:offset+size], bt, size, 1)
			if err != nil {
				return nil, err
			}
			fields[i] = decoded[0]
			offset += size
		}
		records = append(records, Element{Record: fields})
	}
	return records, nil
}
