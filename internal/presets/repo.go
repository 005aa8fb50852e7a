package presets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pacelog/pacelog/internal/activities"
	"github.com/pacelog/pacelog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrPresetNotFound = errors.New("preset not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, userID int, preset Preset) (_ *Preset, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.presets.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO presets
				(user_id, type, name, distance_km, effort, last_used_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		userID, preset.Type, preset.Name, preset.DistanceKm, preset.Effort, preset.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("preset.id", id))

	preset.ID = id
	return &preset, nil
}

func (r *Repo) Update(ctx context.Context, userID int, preset *Preset) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.presets.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", preset.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE presets
			SET type = $1, name = $2, distance_km = $3, effort = $4
			WHERE id = $5 AND user_id = $6;`,
		preset.Type, preset.Name, preset.DistanceKm, preset.Effort,
		preset.ID, userID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrPresetNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.presets.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM presets WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPresetNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Preset, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.presets.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, type, name, distance_km, effort, last_used_at
			FROM presets
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	found, err := r.rows2presets(rows)
	if err != nil {
		return nil, err
	}

	if len(found) != 1 {
		return nil, ErrPresetNotFound
	}

	return &found[0], nil
}

func (r *Repo) ListAll(ctx context.Context, userID int) (_ []Preset, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.presets.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, type, name, distance_km, effort, last_used_at
			FROM presets
			WHERE user_id = $1
			ORDER BY last_used_at DESC, id DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2presets(rows)
}

// Recent returns the most recently used presets of the given type,
// limited to the quick log form size.
func (r *Repo) Recent(ctx context.Context, userID int, activityType activities.Type) (_ []Preset, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.presets.recent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("type", activityType.String()))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, type, name, distance_km, effort, last_used_at
			FROM presets
			WHERE user_id = $1 AND type = $2
			ORDER BY last_used_at DESC, id DESC
			LIMIT $3;`,
		userID, activityType, RecentLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2presets(rows)
}

// Touch bumps last_used_at, called every time a preset is chosen
// during logging.
func (r *Repo) Touch(ctx context.Context, userID, id int, usedAt time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.presets.touch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE presets SET last_used_at = $1 WHERE id = $2 AND user_id = $3;`,
		usedAt, id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPresetNotFound
	}
	return nil
}

func (r *Repo) rows2presets(rows pgx.Rows) ([]Preset, error) {
	var found []Preset
	for rows.Next() {
		var (
			id         int
			presetType string
			name       string
			distanceKm float64
			effort     int
			lastUsedAt time.Time
		)
		if err := rows.Scan(&id, &presetType, &name, &distanceKm, &effort, &lastUsedAt); err != nil {
			return nil, err
		}

		found = append(found, Preset{
			ID:         id,
			Type:       activities.Type(presetType),
			Name:       name,
			DistanceKm: distanceKm,
			Effort:     effort,
			LastUsedAt: lastUsedAt,
		})
	}

	if found == nil {
		found = make([]Preset, 0)
	}

	return found, nil
}
