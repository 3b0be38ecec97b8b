package semanticdb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Protobuf field numbers of the toolchain's schema. Only the fields the
// indexer consumes are listed; everything else is skipped on decode and
// never re-emitted.
//
//	TextDocuments:    1=repeated TextDocument
//	TextDocument:     1=schema 2=uri 3=text 6=repeated SymbolOccurrence
//	SymbolOccurrence: 1=range 2=symbol 3=role
//	Range:            1=startLine 2=startCharacter 3=endLine 4=endCharacter
const (
	documentsField = 1

	documentSchemaField      = 1
	documentURIField         = 2
	documentTextField        = 3
	documentOccurrencesField = 6

	occurrenceRangeField  = 1
	occurrenceSymbolField = 2
	occurrenceRoleField   = 3
)

// Unmarshal decodes a binary-encoded metadata file.
func Unmarshal(data []byte) (*TextDocuments, error) {
	docs := &TextDocuments{}
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("text documents: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if num == documentsField && typ == protowire.BytesType {
			body, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("text documents: %w", protowire.ParseError(m))
			}
			b = b[m:]
			doc, err := consumeDocument(body)
			if err != nil {
				return nil, err
			}
			docs.Documents = append(docs.Documents, doc)
			continue
		}
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return nil, fmt.Errorf("text documents: %w", protowire.ParseError(m))
		}
		b = b[m:]
	}
	return docs, nil
}

func consumeDocument(b []byte) (TextDocument, error) {
	var doc TextDocument
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return doc, fmt.Errorf("text document: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == documentSchemaField && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return doc, fmt.Errorf("text document: %w", protowire.ParseError(m))
			}
			doc.Schema = int32(v)
			b = b[m:]
		case num == documentURIField && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return doc, fmt.Errorf("text document: %w", protowire.ParseError(m))
			}
			doc.URI = s
			b = b[m:]
		case num == documentTextField && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return doc, fmt.Errorf("text document: %w", protowire.ParseError(m))
			}
			doc.Text = s
			b = b[m:]
		case num == documentOccurrencesField && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return doc, fmt.Errorf("text document: %w", protowire.ParseError(m))
			}
			b = b[m:]
			occ, err := consumeOccurrence(body)
			if err != nil {
				return doc, err
			}
			doc.Occurrences = append(doc.Occurrences, occ)
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return doc, fmt.Errorf("text document: %w", protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return doc, nil
}

func consumeOccurrence(b []byte) (SymbolOccurrence, error) {
	var occ SymbolOccurrence
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return occ, fmt.Errorf("symbol occurrence: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == occurrenceRangeField && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return occ, fmt.Errorf("symbol occurrence: %w", protowire.ParseError(m))
			}
			b = b[m:]
			r, err := consumeRange(body)
			if err != nil {
				return occ, err
			}
			occ.Range = r
		case num == occurrenceSymbolField && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return occ, fmt.Errorf("symbol occurrence: %w", protowire.ParseError(m))
			}
			occ.Symbol = s
			b = b[m:]
		case num == occurrenceRoleField && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return occ, fmt.Errorf("symbol occurrence: %w", protowire.ParseError(m))
			}
			occ.Role = Role(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return occ, fmt.Errorf("symbol occurrence: %w", protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return occ, nil
}

func consumeRange(b []byte) (Range, error) {
	var r Range
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, fmt.Errorf("range: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return r, fmt.Errorf("range: %w", protowire.ParseError(m))
			}
			b = b[m:]
			continue
		}
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return r, fmt.Errorf("range: %w", protowire.ParseError(m))
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

// Marshal re-encodes a container in the binary variant. Used when splitting
// multi-document inputs into the one-document-per-file copies served
// alongside the symbol index.
func (docs *TextDocuments) Marshal() []byte {
	var b []byte
	for i := range docs.Documents {
		var body []byte
		body = appendDocument(body, &docs.Documents[i])
		b = protowire.AppendTag(b, documentsField, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	}
	return b
}

func appendDocument(b []byte, doc *TextDocument) []byte {
	if doc.Schema != 0 {
		b = protowire.AppendTag(b, documentSchemaField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(doc.Schema))
	}
	if doc.URI != "" {
		b = protowire.AppendTag(b, documentURIField, protowire.BytesType)
		b = protowire.AppendString(b, doc.URI)
	}
	if doc.Text != "" {
		b = protowire.AppendTag(b, documentTextField, protowire.BytesType)
		b = protowire.AppendString(b, doc.Text)
	}
	for _, occ := range doc.Occurrences {
		var body []byte
		body = appendOccurrence(body, occ)
		b = protowire.AppendTag(b, documentOccurrencesField, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	}
	return b
}

func appendOccurrence(b []byte, occ SymbolOccurrence) []byte {
	var rangeBody []byte
	rangeBody = appendRange(rangeBody, occ.Range)
	b = protowire.AppendTag(b, occurrenceRangeField, protowire.BytesType)
	b = protowire.AppendBytes(b, rangeBody)

	if occ.Symbol != "" {
		b = protowire.AppendTag(b, occurrenceSymbolField, protowire.BytesType)
		b = protowire.AppendString(b, occ.Symbol)
	}
	if occ.Role != RoleUnknown {
		b = protowire.AppendTag(b, occurrenceRoleField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(occ.Role))
	}
	return b
}

func appendRange(b []byte, r Range) []byte {
	if r.StartLine != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.StartLine))
	}
	if r.StartCharacter != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.StartCharacter))
	}
	if r.EndLine != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.EndLine))
	}
	if r.EndCharacter != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.EndCharacter))
	}
	return b
}
