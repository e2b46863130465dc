package enquiry

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const enquiryCols = `id, patient_name, phone, contact_mode, source, country, city,
	medical_problem, age_or_dob, specialty_id, surgery_id, doctor_id,
	consultation_date, status, assigned_pa, package_notes, created_at, updated_at`

func scan(row pgx.Row) (*Enquiry, error) {
	var e Enquiry
	err := row.Scan(&e.ID, &e.PatientName, &e.Phone, &e.ContactMode, &e.Source,
		&e.Country, &e.City, &e.MedicalProblem, &e.AgeOrDOB, &e.SpecialtyID,
		&e.SurgeryID, &e.DoctorID, &e.ConsultationDate, &e.Status, &e.AssignedPA,
		&e.PackageNotes, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Enquiry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO enquiries (id, patient_name, phone, contact_mode, source, country,
			city, medical_problem, age_or_dob, specialty_id, surgery_id, doctor_id,
			consultation_date, status, package_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		e.ID, e.PatientName, e.Phone, e.ContactMode, e.Source, e.Country, e.City,
		e.MedicalProblem, e.AgeOrDOB, e.SpecialtyID, e.SurgeryID, e.DoctorID,
		e.ConsultationDate, e.Status, e.PackageNotes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Enquiry, error) {
	return scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+enquiryCols+` FROM enquiries WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Enquiry, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if f.AssignedPA != nil {
		args = append(args, *f.AssignedPA)
		where = append(where, fmt.Sprintf("assigned_pa = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM enquiries WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+enquiryCols+` FROM enquiries WHERE `+cond+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Enquiry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE enquiries SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetAssignment(ctx context.Context, id, pa uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE enquiries SET assigned_pa = $2, status = $3, updated_at = NOW()
		WHERE id = $1`, id, pa, StatusAssigned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
