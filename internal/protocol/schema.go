package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "mem://rovergym/schemas/"

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Validator checks raw messages against the embedded per-type JSON schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBase+e.Name(), bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", e.Name(), err)
		}
		names = append(names, e.Name())
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, n := range names {
		s, err := c.Compile(schemaBase + n)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", n, err)
		}
		v.schemas[strings.TrimSuffix(n, ".schema.json")] = s
	}
	return v, nil
}

// Validate decodes raw far enough to find its type and checks it against
// that type's schema.
func (v *Validator) Validate(raw []byte) (BaseMessage, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return BaseMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return BaseMessage{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	typ, _ := obj["type"].(string)
	base := BaseMessage{Type: typ}
	s, ok := v.schemas[typ]
	if !ok {
		return base, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if err := s.Validate(doc); err != nil {
		return base, fmt.Errorf("%w: %s: %v", ErrMalformed, typ, err)
	}
	return base, nil
}

// Types lists the message types with a schema.
func (v *Validator) Types() []string {
	out := make([]string, 0, len(v.schemas))
	for k := range v.schemas {
		out = append(out, k)
	}
	return out
}
