package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equwal/pixelplanet/internal/app/db"
)

// Repository is the persistence surface the directory service needs.
// The pgx implementation below is the production one; tests supply fakes.
type Repository interface {
	// FindOrCreateChannel returns the channel with the given name, creating it
	// if it does not exist yet. The call is idempotent.
	FindOrCreateChannel(ctx context.Context, name string) (Channel, error)

	// FindOrCreateUser returns the id of the user with the given name,
	// creating a verified system account when absent.
	FindOrCreateUser(ctx context.Context, name, email string) (int64, error)

	// UserIDByName resolves a display name to a user id. It returns (0, nil)
	// when no such user exists.
	UserIDByName(ctx context.Context, name string) (int64, error)

	// UserByID loads the persistent user record for the session gate.
	UserByID(ctx context.Context, id int64) (UserRecord, error)

	// UserChannels returns the per-user channel memberships (DM channels and
	// explicit joins), keyed by channel id.
	UserChannels(ctx context.Context, userID int64) (map[int64]Membership, error)

	// CreateMembership joins a user to a channel. It reports whether the
	// membership was newly created.
	CreateMembership(ctx context.Context, userID, channelID int64, dmPeer *int64) (bool, error)

	// TouchChannel updates the channel's last message timestamp.
	TouchChannel(ctx context.Context, channelID int64, ts time.Time) error
}

// ErrUserNotFound is returned by UserByID for an unknown id.
var ErrUserNotFound = errors.New("directory: user not found")

// PgxRepository implements Repository on a PostgreSQL pool.
type PgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository wraps a connection pool as a Repository.
func NewPgxRepository(pool *pgxpool.Pool) *PgxRepository {
	return &PgxRepository{pool: pool}
}

func (r *PgxRepository) FindOrCreateChannel(ctx context.Context, name string) (Channel, error) {
	var ch Channel

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, type, last_ts FROM channels WHERE name = $1`,
		name,
	).Scan(&ch.ID, &ch.Name, &ch.Type, &ch.LastTS)
	if err == nil {
		return ch, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Channel{}, fmt.Errorf("find channel %q: %w", name, err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO channels (name) VALUES ($1) RETURNING id, name, type, last_ts`,
		name,
	).Scan(&ch.ID, &ch.Name, &ch.Type, &ch.LastTS)
	if err != nil {
		// lost a create race, the row exists now
		if db.IsUniqueViolation(err) {
			return r.FindOrCreateChannel(ctx, name)
		}
		return Channel{}, fmt.Errorf("create channel %q: %w", name, err)
	}

	return ch, nil
}

func (r *PgxRepository) FindOrCreateUser(ctx context.Context, name, email string) (int64, error) {
	var id int64

	err := r.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE name = $1`, name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("find user %q: %w", name, err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, verified) VALUES ($1, $2, 3) RETURNING id`,
		name, email,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return r.FindOrCreateUser(ctx, name, email)
		}
		return 0, fmt.Errorf("create user %q: %w", name, err)
	}

	return id, nil
}

func (r *PgxRepository) UserIDByName(ctx context.Context, name string) (int64, error) {
	var id int64

	err := r.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE name = $1`, name,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolve user %q: %w", name, err)
	}

	return id, nil
}

func (r *PgxRepository) UserByID(ctx context.Context, id int64) (UserRecord, error) {
	var (
		rec      UserRecord
		verified int
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, country, role, verified, lang FROM users WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Country, &rec.Role, &verified, &rec.Lang)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRecord{}, ErrUserNotFound
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("load user %d: %w", id, err)
	}

	rec.Verified = verified > 0
	return rec, nil
}

func (r *PgxRepository) UserChannels(ctx context.Context, userID int64) (map[int64]Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.type, c.last_ts, uc.dm_peer_id
		 FROM user_channels uc
		 JOIN channels c ON c.id = uc.channel_id
		 WHERE uc.user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load channels for user %d: %w", userID, err)
	}
	defer rows.Close()

	channels := make(map[int64]Membership)
	for rows.Next() {
		var (
			id int64
			m  Membership
		)
		if err := rows.Scan(&id, &m.Name, &m.Type, &m.LastTS, &m.DMPeer); err != nil {
			return nil, fmt.Errorf("scan channel row: %w", err)
		}
		channels[id] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel rows: %w", err)
	}

	return channels, nil
}

func (r *PgxRepository) CreateMembership(ctx context.Context, userID, channelID int64, dmPeer *int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO user_channels (user_id, channel_id, dm_peer_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, channel_id) DO NOTHING`,
		userID, channelID, dmPeer,
	)
	if err != nil {
		return false, fmt.Errorf("join user %d to channel %d: %w", userID, channelID, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *PgxRepository) TouchChannel(ctx context.Context, channelID int64, ts time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE channels SET last_ts = $2 WHERE id = $1`,
		channelID, ts,
	)
	if err != nil {
		return fmt.Errorf("touch channel %d: %w", channelID, err)
	}

	return nil
}
