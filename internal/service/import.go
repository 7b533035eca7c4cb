package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
)

// ScopeHint names where a parsed record belongs below its program. Each
// field matches an ID or, ignoring case, a name. Both empty means program
// scope.
type ScopeHint struct {
	Clinic   string `json:"clinic,omitempty"`
	Location string `json:"location,omitempty"`
}

// ParsedConfig is one record produced by a document importer: a key already
// mapped to a definition and the raw value found for it.
type ParsedConfig struct {
	MappedKey      string    `json:"mapped_key"`
	RawValue       string    `json:"raw_value"`
	ScopeHint      ScopeHint `json:"scope_hint"`
	SourceDocument string    `json:"source_document,omitempty"`
}

// ImportFailure is a record Import could not store.
type ImportFailure struct {
	Index  int          `json:"index"`
	Record ParsedConfig `json:"record"`
	Error  string       `json:"error"`
	Err    error        `json:"-"`
}

// ImportReport summarizes an Import run.
type ImportReport struct {
	Applied  int             `json:"applied"`
	Failures []ImportFailure `json:"failures,omitempty"`
}

func (v *valuesImpl) Import(
	ctx context.Context,
	programID string,
	records iter.Seq[ParsedConfig],
	actor string,
) (*ImportReport, error) {
	log := logger.FromContextOrDefault(ctx, v.logger)

	h, err := loadHierarchy(ctx, v.stores.Hierarchy, programID)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	index := 0
	for rec := range records {
		i := index
		index++

		fail := func(err error) {
			report.Failures = append(report.Failures, ImportFailure{
				Index:  i,
				Record: rec,
				Error:  err.Error(),
				Err:    err,
			})
		}

		scope, err := resolveHint(h, rec.ScopeHint)
		if err != nil {
			fail(NewConfigError("import", rec.MappedKey, domain.ProgramScope(programID), err.Error(), domain.ErrInvalidScope))
			continue
		}
		_, err = v.Set(ctx, SetRequest{
			Key:            rec.MappedKey,
			Scope:          scope,
			Value:          rec.RawValue,
			Source:         domain.SourceImport,
			SourceDocument: rec.SourceDocument,
			Actor:          actor,
		})
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			fail(err)
			continue
		}
		report.Applied++
	}

	log.Info("import finished",
		slog.String("program_id", programID),
		slog.Int("applied", report.Applied),
		slog.Int("failed", len(report.Failures)))
	return report, nil
}

// resolveHint maps a hint onto a scope of h. A location hint without a
// clinic must match exactly one location of the program.
func resolveHint(h *domain.Hierarchy, hint ScopeHint) (domain.Scope, error) {
	programID := h.Program.ID
	clinicHint := strings.TrimSpace(hint.Clinic)
	locationHint := strings.TrimSpace(hint.Location)

	if clinicHint == "" && locationHint == "" {
		return domain.ProgramScope(programID), nil
	}

	var clinics []domain.ClinicNode
	for _, node := range h.Clinics {
		if clinicHint == "" || matches(clinicHint, node.Clinic.ID, node.Clinic.Name) {
			clinics = append(clinics, node)
		}
	}
	if len(clinics) == 0 {
		return domain.Scope{}, fmt.Errorf("no clinic matches %q", clinicHint)
	}
	if clinicHint != "" && len(clinics) > 1 {
		return domain.Scope{}, fmt.Errorf("clinic %q is ambiguous", clinicHint)
	}
	if locationHint == "" {
		return domain.ClinicScope(programID, clinics[0].Clinic.ID), nil
	}

	var found []domain.Scope
	for _, node := range clinics {
		for _, loc := range node.Locations {
			if matches(locationHint, loc.ID, loc.Name) {
				found = append(found, domain.LocationScope(programID, node.Clinic.ID, loc.ID))
			}
		}
	}
	switch len(found) {
	case 0:
		return domain.Scope{}, fmt.Errorf("no location matches %q", locationHint)
	case 1:
		return found[0], nil
	default:
		return domain.Scope{}, fmt.Errorf("location %q is ambiguous", locationHint)
	}
}

func matches(hint, id, name string) bool {
	return hint == id || strings.EqualFold(hint, name)
}
