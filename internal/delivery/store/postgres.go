package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"entregas/internal/delivery/models"
	"entregas/pkg/platform/sentinel"
)

// Postgres persists deliveries in the entregas table. Column names keep the
// original schema so existing data stays readable.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Schema creates the entregas table when it does not exist yet.
const Schema = `
CREATE TABLE IF NOT EXISTS entregas (
	id                BIGSERIAL PRIMARY KEY,
	orden_id          BIGINT NOT NULL,
	pedido_id         BIGINT NOT NULL,
	repartidor_id     BIGINT NOT NULL,
	estado            TEXT NOT NULL,
	direccion_entrega TEXT NOT NULL,
	ubicacion_actual  TEXT,
	observaciones     TEXT,
	fecha_asignacion  TIMESTAMPTZ NOT NULL,
	fecha_inicio      TIMESTAMPTZ,
	fecha_entrega     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_entregas_repartidor ON entregas (repartidor_id);
CREATE INDEX IF NOT EXISTS idx_entregas_orden ON entregas (orden_id);
`

const deliveryColumns = `id, orden_id, pedido_id, repartidor_id, estado, direccion_entrega,
	ubicacion_actual, observaciones, fecha_asignacion, fecha_inicio, fecha_entrega`

func (s *Postgres) Create(ctx context.Context, d *models.Delivery) (*models.Delivery, error) {
	query := `
		INSERT INTO entregas (orden_id, pedido_id, repartidor_id, estado, direccion_entrega,
			ubicacion_actual, observaciones, fecha_asignacion, fecha_inicio, fecha_entrega)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	stored := *d
	err := s.db.QueryRowContext(ctx, query,
		d.OrderID, d.AssignmentID, d.CourierID, d.Status.Label(), d.DeliveryAddress,
		nullString(d.CurrentLocation), nullString(d.Notes),
		d.AssignedAt, d.StartedAt, d.DeliveredAt,
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("insert delivery: %w", err)
	}
	return &stored, nil
}

func (s *Postgres) FindByID(ctx context.Context, id int64) (*models.Delivery, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM entregas WHERE id = $1`, id)
	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delivery %d: %w", id, sentinel.ErrNotFound)
	}
	return d, err
}

func (s *Postgres) Update(ctx context.Context, d *models.Delivery) (*models.Delivery, error) {
	query := `
		UPDATE entregas
		SET estado = $2, direccion_entrega = $3, ubicacion_actual = $4, observaciones = $5,
			fecha_inicio = $6, fecha_entrega = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		d.ID, d.Status.Label(), d.DeliveryAddress,
		nullString(d.CurrentLocation), nullString(d.Notes),
		d.StartedAt, d.DeliveredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update delivery: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update delivery: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("delivery %d: %w", d.ID, sentinel.ErrNotFound)
	}
	stored := *d
	return &stored, nil
}

func (s *Postgres) ListByCourier(ctx context.Context, courierID int64) ([]*models.Delivery, error) {
	return s.list(ctx,
		`SELECT `+deliveryColumns+` FROM entregas WHERE repartidor_id = $1 ORDER BY id`, courierID)
}

func (s *Postgres) ListByOrder(ctx context.Context, orderID int64) ([]*models.Delivery, error) {
	return s.list(ctx,
		`SELECT `+deliveryColumns+` FROM entregas WHERE orden_id = $1 ORDER BY id`, orderID)
}

func (s *Postgres) list(ctx context.Context, query string, arg any) ([]*models.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*models.Delivery, error) {
	var (
		d           models.Delivery
		estado      string
		location    sql.NullString
		notes       sql.NullString
		startedAt   sql.NullTime
		deliveredAt sql.NullTime
	)
	err := row.Scan(&d.ID, &d.OrderID, &d.AssignmentID, &d.CourierID, &estado,
		&d.DeliveryAddress, &location, &notes, &d.AssignedAt, &startedAt, &deliveredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan delivery: %w", err)
	}

	// Unknown stored tokens are kept verbatim; they render as "unknown
	// status" instead of failing the read.
	if status, ok := models.ParseStatus(estado); ok {
		d.Status = status
	} else {
		d.Status = models.Status(estado)
	}
	d.CurrentLocation = location.String
	d.Notes = notes.String
	if startedAt.Valid {
		t := startedAt.Time
		d.StartedAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		d.DeliveredAt = &t
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
