package devserver

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, uuid, username, email, phone, is_guest, pin_hash, device_id, biometrics_enabled, created_at`

// Create inserts a new user and returns it with the assigned ID.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO users (uuid, username, email, phone, is_guest, pin_hash, device_id, biometrics_enabled, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		user.UUID, user.Username, nullable(user.Email), nullable(user.Phone), user.IsGuest,
		user.PINHash, nullable(user.DeviceID), user.BiometricsEnabled, user.CreatedAt.UTC())
	if err := row.Scan(&user.ID); err != nil {
		return User{}, err
	}
	return user, nil
}

// FindByIdentifier fetches a user by email or phone.
func (r *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR phone = $1`, identifier)
	return scanUser(row)
}

// FindByUUID fetches a user by its stable UUID.
func (r *PostgresRepository) FindByUUID(ctx context.Context, uuid string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uuid = $1`, uuid)
	return scanUser(row)
}

// Update replaces the mutable fields of the record matched by UUID.
func (r *PostgresRepository) Update(ctx context.Context, user User) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET username = $1, email = $2, phone = $3, is_guest = $4,
        pin_hash = $5, device_id = $6, biometrics_enabled = $7 WHERE uuid = $8`,
		user.Username, nullable(user.Email), nullable(user.Phone), user.IsGuest,
		user.PINHash, nullable(user.DeviceID), user.BiometricsEnabled, user.UUID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user      User
		email     *string
		phone     *string
		deviceID  *string
		createdAt time.Time
	)
	err := row.Scan(&user.ID, &user.UUID, &user.Username, &email, &phone, &user.IsGuest,
		&user.PINHash, &deviceID, &user.BiometricsEnabled, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	if email != nil {
		user.Email = *email
	}
	if phone != nil {
		user.Phone = *phone
	}
	if deviceID != nil {
		user.DeviceID = *deviceID
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
