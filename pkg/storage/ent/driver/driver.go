// Package entdriver
package entdriver

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/papercomputeco/relay/pkg/storage"
)

const sessionsTableName = "sessions"

var (
	// sessionsColumns holds the columns for the "sessions" table.
	sessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString, Default: ""},
		{Name: "outcome", Type: field.TypeString},
		{Name: "finish_reason", Type: field.TypeString, Default: ""},
		{Name: "error", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "text_deltas", Type: field.TypeInt, Default: 0},
		{Name: "error_events", Type: field.TypeInt, Default: 0},
		{Name: "decode_failures", Type: field.TypeInt, Default: 0},
		{Name: "prompt_tokens", Type: field.TypeInt, Default: 0},
		{Name: "completion_tokens", Type: field.TypeInt, Default: 0},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "duration_ms", Type: field.TypeInt64, Default: 0},
	}

	// sessionsTable holds the schema information for the "sessions" table.
	sessionsTable = &schema.Table{
		Name:       sessionsTableName,
		Columns:    sessionsColumns,
		PrimaryKey: []*schema.Column{sessionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "session_started_at",
				Unique:  false,
				Columns: []*schema.Column{sessionsColumns[11]},
			},
			{
				Name:    "session_provider_outcome",
				Unique:  false,
				Columns: []*schema.Column{sessionsColumns[1], sessionsColumns[3]},
			},
		},
	}

	// columnNames is the select and insert order of the "sessions" columns.
	columnNames = func() []string {
		names := make([]string, len(sessionsColumns))
		for i, c := range sessionsColumns {
			names[i] = c.Name
		}
		return names
	}()
)

// EntDriver provides session storage on top of an ent SQL driver.
// It is database-agnostic and can be embedded by specific drivers.
type EntDriver struct {
	drv *entsql.Driver
}

// New migrates the sessions schema on drv and returns an EntDriver using it.
// Migration is append-only: new tables, columns and indexes are created,
// nothing is dropped.
func New(ctx context.Context, drv *entsql.Driver) (*EntDriver, error) {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Create(ctx, sessionsTable); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &EntDriver{drv: drv}, nil
}

// Put stores a record, replacing any record with the same ID.
func (ed *EntDriver) Put(ctx context.Context, rec *storage.SessionRecord) error {
	if rec == nil {
		return storage.ErrNilRecord
	}

	query, args := entsql.Dialect(ed.drv.Dialect()).
		Insert(sessionsTableName).
		Columns(columnNames...).
		Values(
			rec.ID,
			rec.Provider,
			rec.Model,
			rec.Outcome,
			rec.FinishReason,
			rec.Error,
			rec.TextDeltas,
			rec.ErrorEvents,
			rec.DecodeFailures,
			rec.PromptTokens,
			rec.CompletionTokens,
			rec.StartedAt.UTC(),
			rec.Duration.Milliseconds(),
		).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := ed.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("failed to store session %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a record by its session ID.
func (ed *EntDriver) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	selector := entsql.Dialect(ed.drv.Dialect()).
		Select(columnNames...).
		From(entsql.Table(sessionsTableName))
	selector.Where(entsql.EQ(selector.C("id"), id))

	records, err := ed.query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}

	return records[0], nil
}

// List returns the most recent records, newest first.
func (ed *EntDriver) List(ctx context.Context, limit int) ([]*storage.SessionRecord, error) {
	selector := entsql.Dialect(ed.drv.Dialect()).
		Select(columnNames...).
		From(entsql.Table(sessionsTableName)).
		OrderBy(entsql.Desc("started_at"), entsql.Asc("id"))
	if limit > 0 {
		selector.Limit(limit)
	}

	return ed.query(ctx, selector)
}

// Stats aggregates the sessions table with one GROUP BY query.
func (ed *EntDriver) Stats(ctx context.Context) (*storage.Stats, error) {
	query, args := entsql.Dialect(ed.drv.Dialect()).
		Select(
			"provider",
			"outcome",
			entsql.Count("*"),
			entsql.Sum("text_deltas"),
			entsql.Sum("decode_failures"),
			entsql.Sum("prompt_tokens"),
			entsql.Sum("completion_tokens"),
		).
		From(entsql.Table(sessionsTableName)).
		GroupBy("provider", "outcome").
		Query()

	rows := &entsql.Rows{}
	if err := ed.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate sessions: %w", err)
	}
	defer rows.Close()

	var groups []storage.StatsGroup
	for rows.Next() {
		var g storage.StatsGroup
		if err := rows.Scan(
			&g.Provider,
			&g.Outcome,
			&g.Sessions,
			&g.TextDeltas,
			&g.DecodeFailures,
			&g.PromptTokens,
			&g.CompletionTokens,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session stats: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session stats: %w", err)
	}
	return storage.NewStats(groups...), nil
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.drv.Close()
}

func (ed *EntDriver) query(ctx context.Context, selector *entsql.Selector) ([]*storage.SessionRecord, error) {
	query, args := selector.Query()

	rows := &entsql.Rows{}
	if err := ed.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []*storage.SessionRecord
	for rows.Next() {
		var (
			rec        storage.SessionRecord
			durationMs int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Provider,
			&rec.Model,
			&rec.Outcome,
			&rec.FinishReason,
			&rec.Error,
			&rec.TextDeltas,
			&rec.ErrorEvents,
			&rec.DecodeFailures,
			&rec.PromptTokens,
			&rec.CompletionTokens,
			&rec.StartedAt,
			&durationMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		rec.StartedAt = rec.StartedAt.UTC()
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return records, nil
}
