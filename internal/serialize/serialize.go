// Package serialize is the output-shaping step of the request pipeline:
// whatever a handler produced, only the fields on an explicit allow-list
// leave the server.
//
// WHY ALLOW-LIST AND NOT DENY-LIST?
// A deny-list ("strip passwordHash") silently starts leaking the moment
// someone adds a new sensitive field to a model. An allow-list fails the
// safe way: a new field stays hidden until somebody deliberately adds it
// to the projection. Unknown and extra fields on the source value are
// dropped without comment — that is the point, not an oversight.
package serialize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Projection declares the outbound shape for one kind of value.
//
// Allow lists the JSON field names that may appear in the output. Derived
// maps an output field name to a dotted path into the source value, used
// to reduce a nested relation to a scalar — e.g. {"userId": "user.id"}
// turns an embedded owner object into just its id. A derived entry only
// applies when the allow-listed field itself is absent from the source.
type Projection struct {
	Allow   []string
	Derived map[string]string
}

// UserFields is the outbound shape of a user. PasswordHash is not on the
// list and therefore can never be emitted, no matter what a handler
// returns.
var UserFields = Projection{
	Allow: []string{"id", "name", "email", "isPrivileged", "createdAt", "updatedAt"},
}

// ReportFields is the outbound shape of a report. The owning user relation
// is reduced to the scalar userId: if the source carries a full nested
// "user" object instead of a flat userId, only its id survives.
var ReportFields = Projection{
	Allow:   []string{"id", "price", "make", "model", "year", "longitude", "latitude", "mileage", "approved", "userId"},
	Derived: map[string]string{"userId": "user.id"},
}

// Apply filters src down to the projection's allow-list and returns a
// fresh map. The source value is never mutated — it is rendered through a
// JSON round-trip, so the filter sees exactly the fields that would have
// been serialized, under their JSON names.
func (p Projection) Apply(src any) (map[string]any, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("serialize: rendering value: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("serialize: value is not an object: %w", err)
	}

	out := make(map[string]any, len(p.Allow))
	for _, name := range p.Allow {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}

	for name, path := range p.Derived {
		if _, ok := out[name]; ok {
			continue // the flat field already satisfied it
		}
		if v, ok := lookupPath(fields, path); ok {
			out[name] = v
		}
	}

	return out, nil
}

// ApplyAll projects a slice of values element-wise.
func (p Projection) ApplyAll(src any) ([]map[string]any, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("serialize: rendering slice: %w", err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("serialize: value is not an array: %w", err)
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		projected, err := p.Apply(item)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

// lookupPath walks a dotted path ("user.id") through nested JSON objects.
func lookupPath(fields map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = fields
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
