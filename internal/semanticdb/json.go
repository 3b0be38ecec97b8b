package semanticdb

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// roleNames maps the JSON variant's role spellings to Role values. The
// toolchain emits enum names; numeric roles are accepted for leniency.
var roleNames = map[string]Role{
	"UNKNOWN_ROLE": RoleUnknown,
	"REFERENCE":    RoleReference,
	"DEFINITION":   RoleDefinition,
}

// UnmarshalJSON decodes a role from either its enum name or its number.
func (r *Role) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		role, ok := roleNames[name]
		if !ok {
			return fmt.Errorf("unknown occurrence role %q", name)
		}
		*r = role
		return nil
	}
	var n int32
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = Role(n)
	return nil
}

// MarshalJSON encodes a role as its enum name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a JSON-encoded metadata file. Unknown top-level or
// nested fields are ignored; a syntactically valid payload that is not an
// object fails.
func UnmarshalJSON(data []byte) (*TextDocuments, error) {
	docs := &TextDocuments{}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(docs); err != nil {
		return nil, err
	}
	return docs, nil
}
