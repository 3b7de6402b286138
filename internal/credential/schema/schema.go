// Package schema validates credential claims against the typed credential
// schemas the platform issues. Unknown credential types are rejected at
// issuance and reported as schema violations at verification.
package schema

import (
	"sort"

	dErrors "custodia/pkg/domain-errors"
)

// Kind is the expected JSON type of a claim field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
)

// Field describes one claim of a credential schema.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
}

// Schema is the claim contract for one credential type.
type Schema struct {
	Type   string
	Fields []Field
}

// Registry maps credential types to their schemas.
type Registry struct {
	schemas map[string]Schema
}

// NewRegistry builds a registry preloaded with the education credential
// types the platform issues.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]Schema)}
	r.Register(Schema{Type: "enrollment", Fields: []Field{
		{Name: "institution", Kind: KindString, Required: true},
		{Name: "program", Kind: KindString, Required: true},
		{Name: "academic_year", Kind: KindString, Required: false},
	}})
	r.Register(Schema{Type: "course_completion", Fields: []Field{
		{Name: "course", Kind: KindString, Required: true},
		{Name: "grade", Kind: KindNumber, Required: true},
		{Name: "credits", Kind: KindNumber, Required: false},
	}})
	r.Register(Schema{Type: "tutor_accreditation", Fields: []Field{
		{Name: "subject", Kind: KindString, Required: true},
		{Name: "level", Kind: KindString, Required: true},
		{Name: "background_checked", Kind: KindBoolean, Required: false},
	}})
	return r
}

// Register adds or replaces a schema.
func (r *Registry) Register(s Schema) {
	r.schemas[s.Type] = s
}

// Types lists the registered credential types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Validate checks claims against the schema registered for credentialType.
// All failures are CodeValidation so the issuer rejects with 400 and the
// verifier downgrades to a schema_violation outcome.
func (r *Registry) Validate(credentialType string, claims map[string]any) error {
	s, ok := r.schemas[credentialType]
	if !ok {
		return dErrors.Newf(dErrors.CodeValidation, "unknown credential type %q", credentialType)
	}
	for _, f := range s.Fields {
		value, present := claims[f.Name]
		if !present {
			if f.Required {
				return dErrors.Newf(dErrors.CodeValidation, "claim %q is required", f.Name)
			}
			continue
		}
		if !kindMatches(f.Kind, value) {
			return dErrors.Newf(dErrors.CodeValidation, "claim %q must be a %s", f.Name, f.Kind)
		}
	}
	known := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = struct{}{}
	}
	for name := range claims {
		if _, ok := known[name]; !ok {
			return dErrors.Newf(dErrors.CodeValidation, "claim %q is not part of the %s schema", name, credentialType)
		}
	}
	return nil
}

func kindMatches(kind Kind, value any) bool {
	switch kind {
	case KindString:
		_, ok := value.(string)
		return ok
	case KindNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case KindBoolean:
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}
