package factory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenforge/tokenforge/internal/token"
)

// ErrRecordNotFound occurs when a registry lookup names an unassigned identifier.
var ErrRecordNotFound = errors.New("registry record not found")

// Record is one registry row: the sequential identifier assigned at creation
// time and the deployed instance it maps to.
type Record struct {
	ID        uint64
	Address   token.Address
	Name      string
	Symbol    string
	Owner     token.Address
	CreatedAt time.Time
}

// Repository persists the deployment registry.
type Repository interface {
	Create(ctx context.Context, record Record) error
	ByID(ctx context.Context, id uint64) (Record, error)
}

// PostgresRepository stores registry records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a registry repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a registry record.
func (r *PostgresRepository) Create(ctx context.Context, record Record) error {
	_, err := r.db.Exec(ctx, `INSERT INTO tokens (id, address, name, symbol, owner, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, string(record.Address), record.Name, record.Symbol,
		string(record.Owner), record.CreatedAt.UTC())
	return err
}

// ByID fetches a registry record by sequential identifier.
func (r *PostgresRepository) ByID(ctx context.Context, id uint64) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT id, address, name, symbol, owner, created_at
        FROM tokens WHERE id = $1`, id)
	var (
		record    Record
		address   string
		owner     string
		createdAt time.Time
	)
	if err := row.Scan(&record.ID, &address, &record.Name, &record.Symbol, &owner, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	record.Address = token.Address(address)
	record.Owner = token.Address(owner)
	record.CreatedAt = createdAt.UTC()
	return record, nil
}
