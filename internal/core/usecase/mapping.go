package usecase

import (
	"fmt"
	"strings"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

// MappingEngine edits a session's mapping table. Every edit revalidates the
// preview records against the canonical schema.
type MappingEngine struct {
	transforms *TransformRegistry
	schema     domain.CanonicalFieldSchema
}

func NewMappingEngine(transforms *TransformRegistry, schema domain.CanonicalFieldSchema) *MappingEngine {
	if transforms == nil {
		transforms = defaultTransforms
	}
	if schema == nil {
		schema = domain.DefaultCreditSchema()
	}
	return &MappingEngine{
		transforms: transforms,
		schema:     schema,
	}
}

func (e *MappingEngine) Schema() domain.CanonicalFieldSchema {
	return e.schema
}

// ValidateFunc transforms and validates with this engine's registry and schema.
func (e *MappingEngine) ValidateFunc() domain.ValidateFunc {
	return func(records []domain.RawRecord, mappings map[string]domain.FieldMapping) []domain.ValidationError {
		return Validate(e.transforms.Transform(records, mappings), e.schema)
	}
}

func (e *MappingEngine) Transform(records []domain.RawRecord, mappings map[string]domain.FieldMapping) []domain.TransformedRecord {
	return e.transforms.Transform(records, mappings)
}

func (e *MappingEngine) AddMapping(s *domain.UploadSession, m domain.FieldMapping) error {
	if err := e.checkTransformation(m.Transformation); err != nil {
		return err
	}
	return s.EditMappings(func(t *domain.MappingTable) error {
		return t.Add(m)
	}, e.ValidateFunc())
}

func (e *MappingEngine) RemoveMapping(s *domain.UploadSession, target string) error {
	target = strings.TrimSpace(target)
	return s.EditMappings(func(t *domain.MappingTable) error {
		if !t.Remove(target) {
			return domain.WrapError(domain.ErrNotFound, "remove mapping", fmt.Errorf("target=%s", target))
		}
		return nil
	}, e.ValidateFunc())
}

func (e *MappingEngine) UpdateMapping(s *domain.UploadSession, target string, patch domain.FieldMappingPatch) error {
	if patch.Transformation != nil {
		if err := e.checkTransformation(*patch.Transformation); err != nil {
			return err
		}
	}
	target = strings.TrimSpace(target)
	return s.EditMappings(func(t *domain.MappingTable) error {
		return t.Update(target, patch)
	}, e.ValidateFunc())
}

// ApplyProfile replaces the whole table with the profile's mappings and
// selects the profile as the remote mapping.
func (e *MappingEngine) ApplyProfile(s *domain.UploadSession, profile domain.MappingProfile) error {
	for _, m := range profile.FieldMappings {
		if err := e.checkTransformation(m.Transformation); err != nil {
			return err
		}
	}
	err := s.EditMappings(func(t *domain.MappingTable) error {
		return t.Replace(profile.FieldMappings)
	}, e.ValidateFunc())
	if err != nil {
		return err
	}
	return s.SelectMapping(profile.ID)
}

func (e *MappingEngine) checkTransformation(kind domain.Transformation) error {
	if _, ok := e.transforms.Lookup(kind); !ok {
		return domain.WrapError(domain.ErrInvalidInput, "mapping", fmt.Errorf("unknown transformation %q", kind))
	}
	return nil
}
