package types

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Binary schema for persisted index records. Field numbers are fixed; the
// serving layer decodes these records with the same schema, so changing a
// number is a breaking format change.
//
//	SymbolIndex: 1=symbol(string) 2=definition(Position) 3=references(map<string,Ranges>)
//	Position:    1=filename(string) 2=startLine 3=startCharacter 4=endLine 5=endCharacter
//	Ranges:      1=repeated Range
//	Range:       1=startLine 2=startCharacter 3=endLine 4=endCharacter
//	Workspace:   1=repeated filename(string)
const (
	symbolIndexSymbolField     = 1
	symbolIndexDefinitionField = 2
	symbolIndexReferencesField = 3

	positionFilenameField = 1

	rangesRangeField = 1

	mapKeyField   = 1
	mapValueField = 2

	workspaceFilenameField = 1
)

func appendRange(b []byte, r Range) []byte {
	var body []byte
	if r.StartLine != 0 {
		body = protowire.AppendTag(body, 1, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(r.StartLine))
	}
	if r.StartCharacter != 0 {
		body = protowire.AppendTag(body, 2, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(r.StartCharacter))
	}
	if r.EndLine != 0 {
		body = protowire.AppendTag(body, 3, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(r.EndLine))
	}
	if r.EndCharacter != 0 {
		body = protowire.AppendTag(body, 4, protowire.VarintType)
		body = protowire.AppendVarint(body, uint64(r.EndCharacter))
	}
	return append(b, body...)
}

func consumeRange(b []byte) (Range, error) {
	var r Range
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.VarintType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return r, protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return r, protowire.ParseError(m)
		}
		b = b[m:]
		switch num {
		case 1:
			r.StartLine = int32(v)
		case 2:
			r.StartCharacter = int32(v)
		case 3:
			r.EndLine = int32(v)
		case 4:
			r.EndCharacter = int32(v)
		}
	}
	return r, nil
}

func appendPosition(b []byte, p Position) []byte {
	b = protowire.AppendTag(b, positionFilenameField, protowire.BytesType)
	b = protowire.AppendString(b, p.Filename)
	if p.StartLine != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.StartLine))
	}
	if p.StartCharacter != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.StartCharacter))
	}
	if p.EndLine != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.EndLine))
	}
	if p.EndCharacter != 0 {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.EndCharacter))
	}
	return b
}

func consumePosition(b []byte) (Position, error) {
	var p Position
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == positionFilenameField && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return p, protowire.ParseError(m)
			}
			p.Filename = s
			b = b[m:]
		case typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return p, protowire.ParseError(m)
			}
			b = b[m:]
			switch num {
			case 2:
				p.StartLine = int32(v)
			case 3:
				p.StartCharacter = int32(v)
			case 4:
				p.EndLine = int32(v)
			case 5:
				p.EndCharacter = int32(v)
			}
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return p, protowire.ParseError(m)
			}
			b = b[m:]
		}
	}
	return p, nil
}

func appendRanges(b []byte, ranges []Range) []byte {
	for _, r := range ranges {
		var body []byte
		body = appendRange(body, r)
		b = protowire.AppendTag(b, rangesRangeField, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	}
	return b
}

func consumeRanges(b []byte) ([]Range, error) {
	var ranges []Range
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		if num != rangesRangeField || typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}
		body, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		b = b[m:]
		r, err := consumeRange(body)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// Marshal serializes the index entry. Reference filenames are emitted in
// sorted order so the same entry always yields the same bytes.
func (si *SymbolIndex) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, symbolIndexSymbolField, protowire.BytesType)
	b = protowire.AppendString(b, si.Symbol)

	if si.Definition != nil {
		var body []byte
		body = appendPosition(body, *si.Definition)
		b = protowire.AppendTag(b, symbolIndexDefinitionField, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	}

	filenames := make([]string, 0, len(si.References))
	for filename := range si.References {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)

	for _, filename := range filenames {
		var value []byte
		value = appendRanges(value, si.References[filename])

		var entry []byte
		entry = protowire.AppendTag(entry, mapKeyField, protowire.BytesType)
		entry = protowire.AppendString(entry, filename)
		entry = protowire.AppendTag(entry, mapValueField, protowire.BytesType)
		entry = protowire.AppendBytes(entry, value)

		b = protowire.AppendTag(b, symbolIndexReferencesField, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

// UnmarshalSymbolIndex decodes a record produced by Marshal.
func UnmarshalSymbolIndex(b []byte) (*SymbolIndex, error) {
	si := &SymbolIndex{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("symbol index: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, fmt.Errorf("symbol index: %w", protowire.ParseError(m))
			}
			b = b[m:]
			continue
		}
		body, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return nil, fmt.Errorf("symbol index: %w", protowire.ParseError(m))
		}
		b = b[m:]

		switch num {
		case symbolIndexSymbolField:
			si.Symbol = string(body)
		case symbolIndexDefinitionField:
			p, err := consumePosition(body)
			if err != nil {
				return nil, fmt.Errorf("symbol index definition: %w", err)
			}
			si.Definition = &p
		case symbolIndexReferencesField:
			filename, ranges, err := consumeReferenceEntry(body)
			if err != nil {
				return nil, fmt.Errorf("symbol index references: %w", err)
			}
			if si.References == nil {
				si.References = make(map[string][]Range)
			}
			si.References[filename] = ranges
		}
	}
	return si, nil
}

func consumeReferenceEntry(b []byte) (string, []Range, error) {
	var filename string
	var ranges []Range
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return "", nil, protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}
		body, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return "", nil, protowire.ParseError(m)
		}
		b = b[m:]
		switch num {
		case mapKeyField:
			filename = string(body)
		case mapValueField:
			var err error
			ranges, err = consumeRanges(body)
			if err != nil {
				return "", nil, err
			}
		}
	}
	return filename, ranges, nil
}

// Marshal serializes the workspace manifest.
func (w *Workspace) Marshal() []byte {
	var b []byte
	for _, filename := range w.Filenames {
		b = protowire.AppendTag(b, workspaceFilenameField, protowire.BytesType)
		b = protowire.AppendString(b, filename)
	}
	return b
}

// UnmarshalWorkspace decodes a manifest produced by Marshal.
func UnmarshalWorkspace(b []byte) (*Workspace, error) {
	w := &Workspace{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("workspace: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if num == workspaceFilenameField && typ == protowire.BytesType {
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, fmt.Errorf("workspace: %w", protowire.ParseError(m))
			}
			w.Filenames = append(w.Filenames, s)
			b = b[m:]
			continue
		}
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return nil, fmt.Errorf("workspace: %w", protowire.ParseError(m))
		}
		b = b[m:]
	}
	return w, nil
}
