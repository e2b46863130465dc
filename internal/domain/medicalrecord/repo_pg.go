package medicalrecord

import (
	"context"

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

func (r *repoPG) Create(ctx context.Context, m *MedicalRecord) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_records (id, journey_id, record_date, description,
			file_url, file_name, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.JourneyID, m.RecordDate, m.Description, m.FileURL, m.FileName, m.UploadedBy)
	return err
}

func (r *repoPG) ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, journey_id, record_date, description, file_url, file_name,
			uploaded_by, created_at
		FROM medical_records WHERE journey_id = $1 ORDER BY record_date DESC, created_at DESC`,
		journeyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*MedicalRecord
	for rows.Next() {
		var m MedicalRecord
		if err := rows.Scan(&m.ID, &m.JourneyID, &m.RecordDate, &m.Description,
			&m.FileURL, &m.FileName, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}
