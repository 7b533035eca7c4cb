package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

// ClearRequest selects the program to clear before a reimport.
type ClearRequest struct {
	ProgramID string
	// KeepStructure keeps clinics, locations and providers and clears only
	// the stored values.
	KeepStructure bool
	// Actor defaults to DefaultActor.
	Actor  string
	Reason string
}

// ClearReport counts what ClearProgram removed.
type ClearReport struct {
	ConfigValues int `json:"config_values"`
	Providers    int `json:"providers"`
	Locations    int `json:"locations"`
	Clinics      int `json:"clinics"`
}

func (v *valuesImpl) ClearProgram(ctx context.Context, req ClearRequest) (*ClearReport, error) {
	const op = "clear_program"
	log := logger.FromContextOrDefault(ctx, v.logger)
	scope := domain.ProgramScope(req.ProgramID)

	if _, err := v.stores.Hierarchy.GetProgram(ctx, req.ProgramID); err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewConfigError(op, "", scope, "program does not exist", domain.ErrInvalidScope)
		}
		return nil, NewConfigError(op, "", scope, "failed to read program", err)
	}
	if req.Actor == "" {
		req.Actor = DefaultActor
	}
	if req.Reason == "" {
		req.Reason = "cleared for reimport"
	}

	var (
		report  = &ClearReport{}
		entries []*domain.HistoryEntry
		sources []domain.Source
	)
	err := store.RunInTransaction(ctx, v.db, func(ctx context.Context, tx *sql.Tx) error {
		values := v.stores.Values.WithTx(tx)
		history := v.stores.History.WithTx(tx)

		rows, err := values.ListByProgram(ctx, req.ProgramID, "")
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := values.LockScope(ctx, row.Key, row.Scope); err != nil {
				return err
			}
			entry := &domain.HistoryEntry{
				Key:            row.Key,
				Scope:          row.Scope,
				OldValue:       valueOf(row),
				ChangedBy:      req.Actor,
				Reason:         req.Reason,
				SourceDocument: row.SourceDocument,
				Version:        row.Version,
			}
			if err := v.recorder.Record(ctx, history, entry); err != nil {
				return err
			}
			if err := values.Delete(ctx, row.Key, row.Scope); err != nil {
				return err
			}
			entries = append(entries, entry)
			sources = append(sources, row.Source)
		}
		report.ConfigValues = len(rows)

		if req.KeepStructure {
			return nil
		}
		if report.Providers, err = v.stores.Providers.WithTx(tx).DeleteByProgram(ctx, req.ProgramID); err != nil {
			return err
		}
		hierarchy := v.stores.Hierarchy.WithTx(tx)
		if report.Locations, err = hierarchy.DeleteLocations(ctx, req.ProgramID); err != nil {
			return err
		}
		report.Clinics, err = hierarchy.DeleteClinics(ctx, req.ProgramID)
		return err
	})
	if err != nil {
		log.Error("failed to clear program",
			slog.String("error", err.Error()),
			slog.String("program_id", req.ProgramID))
		return nil, wrapWriteError(op, "", scope, "", err)
	}

	log.Info("program cleared",
		slog.String("program_id", req.ProgramID),
		slog.Bool("keep_structure", req.KeepStructure),
		slog.Int("config_values", report.ConfigValues),
		slog.Int("providers", report.Providers),
		slog.Int("locations", report.Locations),
		slog.Int("clinics", report.Clinics))
	for i, entry := range entries {
		v.emit(ctx, entry, sources[i])
	}
	return report, nil
}
