package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pacelog/pacelog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrActivityNotFound = errors.New("activity not found")

type ActivityParams struct {
	Type Type
	From *time.Time
	To   *time.Time
}

type ListParams struct {
	ActivityParams
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, userID int, activity Activity) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO activities
				(user_id, type, date, distance_km, title, feeling, effort, notes, note_updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id;`,
		userID, activity.Type, activity.Date, activity.DistanceKm,
		activity.Title, activity.Feeling, activity.Effort,
		activity.Notes, activity.NoteUpdatedAt,
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

	span.SetAttributes(attribute.Int("activity.id", id))

	activity.ID = id
	return &activity, nil
}

func (r *Repo) Update(ctx context.Context, userID int, activity *Activity) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", activity.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE activities
			SET type = $1, date = $2, distance_km = $3, title = $4,
				feeling = $5, effort = $6, notes = $7, note_updated_at = $8
			WHERE id = $9 AND user_id = $10;`,
		activity.Type, activity.Date, activity.DistanceKm, activity.Title,
		activity.Feeling, activity.Effort, activity.Notes, activity.NoteUpdatedAt,
		activity.ID, userID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM activities WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, type, date, distance_km, title, feeling, effort, notes, note_updated_at
			FROM activities
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

	found, err := r.rows2activities(rows)
	if err != nil {
		return nil, err
	}

	if len(found) != 1 {
		return nil, ErrActivityNotFound
	}

	return &found[0], nil
}

// ListAll returns all activities of the user, date descending. The
// optional params narrow by type and date range. No pagination here:
// per-user volume is bounded and the sync clients want the whole set.
func (r *Repo) ListAll(ctx context.Context, userID int, params ActivityParams) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("type", params.Type.String()))
	if params.From != nil {
		span.SetAttributes(attribute.String("from", params.From.String()))
	}
	if params.To != nil {
		span.SetAttributes(attribute.String("to", params.To.String()))
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, type, date, distance_km, title, feeling, effort, notes, note_updated_at
			FROM activities
				WHERE user_id = $1
				AND ($2::text = '' OR type = $2)
				AND ($3::timestamp IS NULL OR date >= $3)
				AND ($4::timestamp IS NULL OR date < $4)
			ORDER BY date DESC, id DESC;`,
		userID, params.Type, params.From, params.To,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	found, err := r.rows2activities(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2activities: %w", err)
	}
	return found, nil
}

// List is like ListAll, but returns the specific PAGE,
// i.e. is used for the history view pagination.
func (r *Repo) List(ctx context.Context, userID int, params ListParams) (_ []Activity, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size
	countAll, err := r.Count(ctx, userID, params.ActivityParams)
	if err != nil {
		return nil, -1, err
	}

	if countAll <= limit {
		limit = countAll
		offset = 0
	}

	if countAll-offset < limit {
		offset = countAll - limit
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, type, date, distance_km, title, feeling, effort, notes, note_updated_at
			FROM activities
				WHERE user_id = $1
				AND ($2::text = '' OR type = $2)
			ORDER BY date DESC, id DESC
			LIMIT $3
			OFFSET $4;`,
		userID, params.Type, limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	found, err := r.rows2activities(rows)
	if err != nil {
		return nil, -1, err
	}
	return found, countAll, nil
}

func (r *Repo) Count(ctx context.Context, userID int, params ActivityParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT COUNT(*) FROM activities
			WHERE user_id = $1
			AND ($2::text = '' OR type = $2)
			AND ($3::timestamp IS NULL OR date >= $3)
			AND ($4::timestamp IS NULL OR date < $4);
	`,
		userID, params.Type, params.From, params.To,
	)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get activities count")
}

func (r *Repo) rows2activities(rows pgx.Rows) ([]Activity, error) {
	var found []Activity
	for rows.Next() {
		var (
			id            int
			activityType  string
			date          time.Time
			distanceKm    float64
			title         *string
			feeling       int
			effort        int
			notes         *string
			noteUpdatedAt *time.Time
		)
		if err := rows.Scan(
			&id, &activityType, &date, &distanceKm,
			&title, &feeling, &effort, &notes, &noteUpdatedAt,
		); err != nil {
			return nil, err
		}

		a := Activity{
			ID:            id,
			Type:          Type(activityType),
			Date:          date,
			DistanceKm:    distanceKm,
			Feeling:       feeling,
			Effort:        effort,
			NoteUpdatedAt: noteUpdatedAt,
		}
		if title != nil {
			a.Title = *title
		}
		if notes != nil {
			a.Notes = *notes
		}

		found = append(found, a)
	}

	if found == nil {
		found = make([]Activity, 0)
	}

	return found, nil
}
