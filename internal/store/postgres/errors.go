package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"medisched/backend/internal/store"
)

// activeSlotConstraint is the partial unique index on
// (doctor_id, appointment_date) over pending and booked rows. It is the
// authoritative guard against double-booking a slot.
const activeSlotConstraint = "appointments_active_slot_key"

func mapAppointmentInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if pgErr.ConstraintName == activeSlotConstraint || pgErr.ConstraintName == "" {
			return store.ErrSlotConflict
		}
	}
	return err
}

func mapScanError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
