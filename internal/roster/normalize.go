package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/albapepper/rosterdex/internal/common"
)

const unknownType = "unknown"

// NormalizeEntry converts an arbitrary decoded JSON value into an entry.
// Every field is defaulted on its own when missing or of the wrong shape.
// Non-objects, and objects with neither a name nor an id, yield nil.
// NormalizeEntry is idempotent over its own JSON encoding.
func NormalizeEntry(raw any) *Entry {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	e := &Entry{
		ID:       intField(m["id"]),
		Name:     stringField(m["name"]),
		Types:    typesField(m["types"]),
		Stats:    statsField(m["stats"]),
		Sprite:   stringField(m["sprite"]),
		HeldItem: refField(first(m, "held_item", "heldItem"), "item"),
		Ability:  refField(m["ability"], "ability"),
		Gender:   genderField(m["gender"]),
		Shiny:    truthy(m["shiny"]),
	}
	if moves, ok := m["moves"].([]any); ok {
		for i := 0; i < len(moves) && i < MoveSlots; i++ {
			e.Moves[i] = refField(moves[i], "move")
		}
	}
	return Canonical(e)
}

// NormalizeSlots converts an arbitrary decoded JSON value into six slots.
// Arrays are truncated or padded with empty slots; anything else yields six
// empty slots.
func NormalizeSlots(raw any) Slots {
	var s Slots
	items, ok := raw.([]any)
	if !ok {
		return s
	}
	for i := 0; i < len(items) && i < SlotCount; i++ {
		s[i] = NormalizeEntry(items[i])
	}
	return s
}

// DecodeEntry normalizes one JSON-encoded entry.
func DecodeEntry(data []byte) (*Entry, error) {
	raw, err := decodeLoose(data)
	if err != nil {
		return nil, fmt.Errorf("decode entry: %w: %w", common.ErrValidation, err)
	}
	return NormalizeEntry(raw), nil
}

// UnmarshalJSON decodes stored slot JSON through normalization, so slots
// read from any source always satisfy the entry invariants.
func (s *Slots) UnmarshalJSON(data []byte) error {
	raw, err := decodeLoose(data)
	if err != nil {
		return fmt.Errorf("decode slots: %w", err)
	}
	*s = NormalizeSlots(raw)
	return nil
}

func decodeLoose(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// --------------------------------------------------------------------------
// Field coercion
// --------------------------------------------------------------------------

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// intField accepts integral positive numbers only.
func intField(v any) *int {
	f, ok := number(v)
	if !ok || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func typesField(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, typeName(it))
	}
	return out
}

// typeName accepts "fire", {"name":"fire"} and {"type":{"name":"fire"}}.
func typeName(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case map[string]any:
		if inner, ok := t["type"].(map[string]any); ok {
			if s, ok := inner["name"].(string); ok && s != "" {
				return s
			}
		}
		if s, ok := t["name"].(string); ok && s != "" {
			return s
		}
	}
	return unknownType
}

// statsField accepts {"name","base_stat"} and the raw catalog shape
// {"base_stat", "stat":{"name"}}. Stats without a name are dropped.
func statsField(v any) []StatEntry {
	items, ok := v.([]any)
	if !ok {
		return []StatEntry{}
	}
	out := make([]StatEntry, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			if inner, ok := m["stat"].(map[string]any); ok {
				name, _ = inner["name"].(string)
			}
		}
		if name == "" {
			continue
		}
		base, _ := number(first(m, "base_stat", "baseStat"))
		out = append(out, StatEntry{Name: name, BaseStat: int(base)})
	}
	return out
}

// refField accepts "name", {"name","url"} and the raw catalog wrapper
// {wrapper:{"name","url"}}.
func refField(v any, wrapper string) *Ref {
	switch r := v.(type) {
	case string:
		if r == "" {
			return nil
		}
		return &Ref{Name: r}
	case map[string]any:
		if inner, ok := r[wrapper].(map[string]any); ok {
			r = inner
		}
		name, _ := r["name"].(string)
		if name == "" {
			return nil
		}
		url, _ := r["url"].(string)
		return &Ref{Name: name, URL: url}
	}
	return nil
}

func genderField(v any) Gender {
	if s, ok := v.(string); ok && strings.EqualFold(strings.TrimSpace(s), string(GenderFemale)) {
		return GenderFemale
	}
	return GenderMale
}

// truthy coerces a stored shiny flag: booleans as-is, numbers when non-zero,
// strings when they parse as true or are non-empty and unparseable.
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.TrimSpace(b)
		if parsed, err := strconv.ParseBool(s); err == nil {
			return parsed
		}
		return s != ""
	}
	if f, ok := number(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return false
}
