package goals

import (
	"context"
	"fmt"

	"github.com/pacelog/pacelog/internal/activities"
	"github.com/pacelog/pacelog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) ListAll(ctx context.Context, userID int) (_ []Goal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT type, period, distance_km
			FROM goals
			WHERE user_id = $1
			ORDER BY type, period;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2goals(rows)
}

// Upsert saves the whole goals form in one go. Existing (type, period)
// rows are overwritten, a nil distance clears the goal without
// deleting the row.
func (r *Repo) Upsert(ctx context.Context, userID int, goalsToSave []Goal) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("goals", len(goalsToSave)))

	batch := &pgx.Batch{}
	for _, g := range goalsToSave {
		batch.Queue(
			`INSERT INTO goals (user_id, type, period, distance_km)
					VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id, type, period)
					DO UPDATE SET distance_km = EXCLUDED.distance_km;`,
			userID, g.Type, g.Period, g.DistanceKm,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := results.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close batch: %w", closeErr)
		}
	}()

	for range goalsToSave {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("upsert goal: %w", execErr)
		}
	}

	return nil
}

func (r *Repo) rows2goals(rows pgx.Rows) ([]Goal, error) {
	var found []Goal
	for rows.Next() {
		var (
			goalType   string
			period     string
			distanceKm *float64
		)
		if err := rows.Scan(&goalType, &period, &distanceKm); err != nil {
			return nil, err
		}

		found = append(found, Goal{
			Type:       activities.Type(goalType),
			Period:     Period(period),
			DistanceKm: distanceKm,
		})
	}

	if found == nil {
		found = make([]Goal, 0)
	}

	return found, nil
}
