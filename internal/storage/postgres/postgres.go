// Package postgres implements the storage boundary and the capacity ledger
// on PostgreSQL. Counter mutations and the check-in flip are single
// conditional UPDATE statements, never read-then-write, so they stay atomic
// under concurrent callers and multiple app instances.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"ticketgate/internal/config"
	"ticketgate/internal/ledger"
	"ticketgate/internal/models"
	"ticketgate/internal/storage"
)

type Storage struct {
	DB *sql.DB
}

func InitDB(dbCfg *config.Database) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.User,
		dbCfg.Password,
		dbCfg.DBName,
		dbCfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	s := &Storage{DB: db}
	if err = s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		capacity INT NOT NULL CHECK (capacity >= 0),
		reserved INT NOT NULL DEFAULT 0 CHECK (reserved >= 0 AND reserved <= capacity),
		checked_in INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS cohorts (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id),
		name TEXT NOT NULL,
		capacity INT NOT NULL CHECK (capacity >= 0),
		reserved INT NOT NULL DEFAULT 0 CHECK (reserved >= 0 AND reserved <= capacity),
		checked_in INT NOT NULL DEFAULT 0,
		starts_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id),
		cohort_id UUID REFERENCES cohorts(id),
		quantity INT NOT NULL CHECK (quantity > 0),
		status TEXT NOT NULL,
		attendee_name TEXT NOT NULL,
		attendee_email TEXT NOT NULL,
		qr_code TEXT NOT NULL DEFAULT '',
		checked_in BOOLEAN NOT NULL DEFAULT FALSE,
		checked_in_at TIMESTAMPTZ,
		checked_in_by TEXT NOT NULL DEFAULT '',
		check_in_method TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_event ON bookings(event_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_waitlist ON bookings(event_id, status, created_at);
	`

	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}

	return nil
}

// unitTable picks the table holding the unit's counters.
func unitTable(unit models.UnitRef) (table string, id uuid.UUID) {
	if unit.CohortID != nil {
		return "cohorts", *unit.CohortID
	}
	return "events", unit.EventID
}

// Reserve atomically checks reserved+qty <= capacity and increments reserved
// in the same statement. Zero rows affected means either the unit is missing
// or the request does not fit; a follow-up read tells the two apart.
func (s *Storage) Reserve(ctx context.Context, unit models.UnitRef, qty int) error {
	table, id := unitTable(unit)

	query := fmt.Sprintf(`
		UPDATE %s
		SET reserved = reserved + $2
		WHERE id = $1 AND reserved + $2 <= capacity`, table)

	res, err := s.DB.ExecContext(ctx, query, id, qty)
	if err != nil {
		return fmt.Errorf("reserve capacity: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve capacity: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	existsQuery := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)
	if err = s.DB.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return fmt.Errorf("check unit exists: %w", err)
	}
	if !exists {
		return ledger.ErrUnitNotFound
	}

	return ledger.ErrCapacityExceeded
}

// Release decrements reserved, floored at zero.
func (s *Storage) Release(ctx context.Context, unit models.UnitRef, qty int) error {
	table, id := unitTable(unit)

	query := fmt.Sprintf(`
		UPDATE %s
		SET reserved = GREATEST(reserved - $2, 0)
		WHERE id = $1`, table)

	res, err := s.DB.ExecContext(ctx, query, id, qty)
	if err != nil {
		return fmt.Errorf("release capacity: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release capacity: %w", err)
	}
	if rows == 0 {
		return ledger.ErrUnitNotFound
	}

	return nil
}

// RecordCheckIn increments the unit's check-in counter for live dashboards.
func (s *Storage) RecordCheckIn(ctx context.Context, unit models.UnitRef) error {
	table, id := unitTable(unit)

	query := fmt.Sprintf(`
		UPDATE %s
		SET checked_in = checked_in + 1
		WHERE id = $1`, table)

	res, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("record check-in: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record check-in: %w", err)
	}
	if rows == 0 {
		return ledger.ErrUnitNotFound
	}

	return nil
}

func (s *Storage) Counters(ctx context.Context, unit models.UnitRef) (ledger.Counters, error) {
	table, id := unitTable(unit)

	query := fmt.Sprintf(`SELECT capacity, reserved, checked_in FROM %s WHERE id = $1`, table)

	var c ledger.Counters
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&c.Capacity, &c.Reserved, &c.CheckedIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Counters{}, ledger.ErrUnitNotFound
		}
		return ledger.Counters{}, fmt.Errorf("get counters: %w", err)
	}

	return c, nil
}

func (s *Storage) CreateEvent(ctx context.Context, event *models.Event, cohorts []models.Cohort) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, name, capacity, reserved, checked_in, created_at)
		VALUES ($1, $2, $3, 0, 0, $4)`,
		event.ID, event.Name, event.Capacity, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	for _, c := range cohorts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cohorts (id, event_id, name, capacity, reserved, checked_in, starts_at)
			VALUES ($1, $2, $3, $4, 0, 0, $5)`,
			c.ID, event.ID, c.Name, c.Capacity, c.StartsAt,
		)
		if err != nil {
			return fmt.Errorf("insert cohort: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Storage) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var e models.Event
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, capacity, reserved, checked_in, created_at
		FROM events
		WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Capacity, &e.Reserved, &e.CheckedIn, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	return &e, nil
}

func (s *Storage) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, capacity, reserved, checked_in, created_at
		FROM events
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err = rows.Scan(&e.ID, &e.Name, &e.Capacity, &e.Reserved, &e.CheckedIn, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func (s *Storage) ListCohorts(ctx context.Context, eventID uuid.UUID) ([]models.Cohort, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, event_id, name, capacity, reserved, checked_in, starts_at
		FROM cohorts
		WHERE event_id = $1
		ORDER BY starts_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	defer rows.Close()

	var cohorts []models.Cohort
	for rows.Next() {
		var c models.Cohort
		if err = rows.Scan(&c.ID, &c.EventID, &c.Name, &c.Capacity, &c.Reserved, &c.CheckedIn, &c.StartsAt); err != nil {
			return nil, fmt.Errorf("scan cohort: %w", err)
		}
		cohorts = append(cohorts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cohorts: %w", err)
	}

	return cohorts, nil
}

// SaveBooking inserts a booking; re-inserting the same ID is a no-op so a
// client retry of one registration attempt cannot create a second booking.
func (s *Storage) SaveBooking(ctx context.Context, b *models.Booking) error {
	var cohortID uuid.NullUUID
	if b.CohortID != nil {
		cohortID = uuid.NullUUID{UUID: *b.CohortID, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO bookings (id, event_id, cohort_id, quantity, status,
			attendee_name, attendee_email, qr_code, checked_in, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9)
		ON CONFLICT (id) DO NOTHING`,
		b.ID, b.EventID, cohortID, b.Quantity, b.Status,
		b.AttendeeName, b.AttendeeEmail, b.QRCode, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

func (s *Storage) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := s.scanBooking(s.DB.QueryRowContext(ctx, `
		SELECT id, event_id, cohort_id, quantity, status, attendee_name,
			attendee_email, qr_code, checked_in, checked_in_at, checked_in_by,
			check_in_method, created_at
		FROM bookings
		WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}

	return b, nil
}

// TransitionBooking applies a status change as one conditional update: the
// row must still be in the from status for the write to land.
func (s *Storage) TransitionBooking(ctx context.Context, id uuid.UUID, from, to models.BookingStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("invalid booking status transition: %s -> %s", from, to)
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE bookings
		SET status = $3
		WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("transition booking: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition booking: %w", err)
	}

	return rows > 0, nil
}

// ApplyCheckIn flips checked_in in one conditional update. When two scanners
// race, exactly one update matches the checked_in = FALSE guard.
func (s *Storage) ApplyCheckIn(ctx context.Context, id uuid.UUID, at time.Time, by string, method models.CheckInMethod) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE bookings
		SET checked_in = TRUE, checked_in_at = $2, checked_in_by = $3, check_in_method = $4
		WHERE id = $1 AND checked_in = FALSE AND status = $5`,
		id, at, by, method, models.StatusConfirmed,
	)
	if err != nil {
		return false, fmt.Errorf("apply check-in: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply check-in: %w", err)
	}

	return rows > 0, nil
}

func (s *Storage) SetQRCode(ctx context.Context, id uuid.UUID, code string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE bookings
		SET qr_code = $2
		WHERE id = $1`, id, code)
	if err != nil {
		return fmt.Errorf("set qr code: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set qr code: %w", err)
	}
	if rows == 0 {
		return storage.ErrBookingNotFound
	}

	return nil
}

func (s *Storage) ListWaitlistedUnits(ctx context.Context) ([]models.UnitRef, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT DISTINCT event_id, cohort_id
		FROM bookings
		WHERE status = $1`, models.StatusWaitlisted)
	if err != nil {
		return nil, fmt.Errorf("list waitlisted units: %w", err)
	}
	defer rows.Close()

	var units []models.UnitRef
	for rows.Next() {
		var (
			eventID  uuid.UUID
			cohortID uuid.NullUUID
		)
		if err = rows.Scan(&eventID, &cohortID); err != nil {
			return nil, fmt.Errorf("scan waitlisted unit: %w", err)
		}

		unit := models.EventUnit(eventID)
		if cohortID.Valid {
			unit = models.CohortUnit(eventID, cohortID.UUID)
		}
		units = append(units, unit)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waitlisted units: %w", err)
	}

	return units, nil
}

func (s *Storage) ListBookingsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, event_id, cohort_id, quantity, status, attendee_name,
			attendee_email, qr_code, checked_in, checked_in_at, checked_in_by,
			check_in_method, created_at
		FROM bookings
		WHERE event_id = $1
		ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	return s.collectBookings(rows)
}

func (s *Storage) ListWaitlisted(ctx context.Context, unit models.UnitRef, limit int) ([]models.Booking, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if unit.CohortID != nil {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT id, event_id, cohort_id, quantity, status, attendee_name,
				attendee_email, qr_code, checked_in, checked_in_at, checked_in_by,
				check_in_method, created_at
			FROM bookings
			WHERE event_id = $1 AND cohort_id = $2 AND status = $3
			ORDER BY created_at ASC
			LIMIT $4`,
			unit.EventID, *unit.CohortID, models.StatusWaitlisted, limit)
	} else {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT id, event_id, cohort_id, quantity, status, attendee_name,
				attendee_email, qr_code, checked_in, checked_in_at, checked_in_by,
				check_in_method, created_at
			FROM bookings
			WHERE event_id = $1 AND cohort_id IS NULL AND status = $2
			ORDER BY created_at ASC
			LIMIT $3`,
			unit.EventID, models.StatusWaitlisted, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list waitlisted bookings: %w", err)
	}
	defer rows.Close()

	return s.collectBookings(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b        models.Booking
		cohortID uuid.NullUUID
		at       sql.NullTime
		method   string
	)

	err := row.Scan(&b.ID, &b.EventID, &cohortID, &b.Quantity, &b.Status,
		&b.AttendeeName, &b.AttendeeEmail, &b.QRCode, &b.CheckedIn, &at,
		&b.CheckedInBy, &method, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	if cohortID.Valid {
		id := cohortID.UUID
		b.CohortID = &id
	}
	if at.Valid {
		t := at.Time
		b.CheckedInAt = &t
	}
	b.CheckInMethod = models.CheckInMethod(method)

	return &b, nil
}

func (s *Storage) collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := s.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}
