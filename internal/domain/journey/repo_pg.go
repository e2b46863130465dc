package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futurxteam/MedTour-backend/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const journeyCols = `id, enquiry_id, assigned_pa, patient_id, status, stages,
	total_duration, current_day, progress_percentage, estimated_completion_date,
	version, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Journey, error) {
	var j Journey
	var stages []byte
	err := row.Scan(&j.ID, &j.EnquiryID, &j.AssignedPA, &j.PatientID, &j.Status,
		&stages, &j.TotalDuration, &j.CurrentDay, &j.ProgressPercentage,
		&j.EstimatedCompletionDate, &j.Version, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stages, &j.Stages); err != nil {
		return nil, fmt.Errorf("decode stages: %w", err)
	}
	if j.Stages == nil {
		j.Stages = []Stage{}
	}
	return &j, nil
}

func (r *repoPG) Create(ctx context.Context, j *Journey) error {
	j.ID = uuid.New()
	stages, err := json.Marshal(j.Stages)
	if err != nil {
		return fmt.Errorf("encode stages: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO journeys (id, enquiry_id, assigned_pa, patient_id, status, stages,
			total_duration, current_day, progress_percentage, estimated_completion_date, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,1)`,
		j.ID, j.EnquiryID, j.AssignedPA, j.PatientID, j.Status, stages,
		j.TotalDuration, j.CurrentDay, j.ProgressPercentage, j.EstimatedCompletionDate)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// unique index on enquiry_id: at most one journey per enquiry
		return ErrConflict
	}
	if err != nil {
		return err
	}
	j.Version = 1
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Journey, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+journeyCols+` FROM journeys WHERE id = $1`, id))
}

func (r *repoPG) GetByEnquiryID(ctx context.Context, enquiryID uuid.UUID) (*Journey, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+journeyCols+` FROM journeys WHERE enquiry_id = $1`, enquiryID))
}

func (r *repoPG) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*Journey, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+journeyCols+` FROM journeys WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`, patientID))
}

func (r *repoPG) ListByAssistant(ctx context.Context, pa uuid.UUID, limit, offset int) ([]*Journey, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM journeys WHERE assigned_pa = $1`, pa).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+journeyCols+` FROM journeys WHERE assigned_pa = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		pa, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Journey
	for rows.Next() {
		j, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, j)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, j *Journey) error {
	stages, err := json.Marshal(j.Stages)
	if err != nil {
		return fmt.Errorf("encode stages: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE journeys SET status=$2, stages=$3, total_duration=$4, current_day=$5,
			progress_percentage=$6, estimated_completion_date=$7,
			version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $8`,
		j.ID, j.Status, stages, j.TotalDuration, j.CurrentDay,
		j.ProgressPercentage, j.EstimatedCompletionDate, j.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	j.Version++
	return nil
}
