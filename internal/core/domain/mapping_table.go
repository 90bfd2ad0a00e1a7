package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MappingTable holds at most one FieldMapping per target field. Adding a
// mapping for a target that is already mapped replaces the previous one.
type MappingTable struct {
	entries map[string]FieldMapping
}

func NewMappingTable() *MappingTable {
	return &MappingTable{entries: make(map[string]FieldMapping)}
}

func (t *MappingTable) Add(m FieldMapping) error {
	m.SourceField = strings.TrimSpace(m.SourceField)
	m.TargetField = strings.TrimSpace(m.TargetField)
	if m.SourceField == "" || m.TargetField == "" {
		return WrapError(ErrInvalidInput, "add mapping", errors.New("source and target field are required"))
	}
	if m.Transformation == "" {
		m.Transformation = TransformNone
	}
	t.entries[m.TargetField] = m
	return nil
}

func (t *MappingTable) Remove(target string) bool {
	if _, ok := t.entries[target]; !ok {
		return false
	}
	delete(t.entries, target)
	return true
}

func (t *MappingTable) Update(target string, patch FieldMappingPatch) error {
	m, ok := t.entries[target]
	if !ok {
		return WrapError(ErrNotFound, "update mapping", fmt.Errorf("target=%s", target))
	}
	if patch.SourceField != nil {
		src := strings.TrimSpace(*patch.SourceField)
		if src == "" {
			return WrapError(ErrInvalidInput, "update mapping", errors.New("source field is required"))
		}
		m.SourceField = src
	}
	if patch.Transformation != nil {
		m.Transformation = *patch.Transformation
		if m.Transformation == "" {
			m.Transformation = TransformNone
		}
	}
	if patch.IsRequired != nil {
		m.IsRequired = *patch.IsRequired
	}
	if patch.DefaultValue != nil {
		m.DefaultValue = *patch.DefaultValue
	}
	t.entries[target] = m
	return nil
}

// Replace discards every entry and loads the given mappings.
func (t *MappingTable) Replace(mappings []FieldMapping) error {
	next := NewMappingTable()
	for _, m := range mappings {
		if err := next.Add(m); err != nil {
			return err
		}
	}
	t.entries = next.entries
	return nil
}

func (t *MappingTable) Get(target string) (FieldMapping, bool) {
	m, ok := t.entries[target]
	return m, ok
}

func (t *MappingTable) Len() int {
	return len(t.entries)
}

// Snapshot returns the mappings ordered by target field.
func (t *MappingTable) Snapshot() []FieldMapping {
	out := make([]FieldMapping, 0, len(t.entries))
	for _, m := range t.entries {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetField < out[j].TargetField })
	return out
}

func (t *MappingTable) Entries() map[string]FieldMapping {
	out := make(map[string]FieldMapping, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}
