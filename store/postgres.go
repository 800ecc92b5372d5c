package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	host_id     TEXT NOT NULL DEFAULT '',
	max_players INT NOT NULL,
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	game_type   TEXT NOT NULL,
	is_private  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS players (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	room_id   TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	is_host   BOOLEAN NOT NULL DEFAULT FALSE,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS players_room_name_idx
	ON players (room_id, LOWER(name));
`

// Postgres is a RoomStore backed by PostgreSQL through database/sql.
// The unique index on (room_id, lower(name)) makes the join-name uniqueness
// check a storage-layer guarantee instead of a read-then-write race.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool for the given DSN and verifies it.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates the rooms/players tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) CreateRoom(ctx context.Context, room Room) (Room, error) {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO rooms (id, name, host_id, max_players, is_active, game_type, is_private)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		room.ID, room.Name, room.HostID, room.MaxPlayers, room.IsActive, room.GameType, room.IsPrivate,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return Room{}, fmt.Errorf("insert room: %w", err)
	}
	return room, nil
}

func (p *Postgres) GetRoomByID(ctx context.Context, id string) (Room, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, host_id, max_players, is_active, game_type, is_private, created_at, updated_at
		FROM rooms WHERE id = $1`, id)
	return scanRoom(row)
}

func (p *Postgres) GetActiveRooms(ctx context.Context, limit int) ([]Room, error) {
	query := `
		SELECT id, name, host_id, max_players, is_active, game_type, is_private, created_at, updated_at
		FROM rooms WHERE is_active ORDER BY created_at`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return p.queryRooms(ctx, query, args...)
}

func (p *Postgres) ListRooms(ctx context.Context) ([]Room, error) {
	return p.queryRooms(ctx, `
		SELECT id, name, host_id, max_players, is_active, game_type, is_private, created_at, updated_at
		FROM rooms ORDER BY created_at`)
}

func (p *Postgres) UpdateRoom(ctx context.Context, id string, update RoomUpdate) (Room, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.HostID != nil {
		add("host_id", *update.HostID)
	}
	if update.MaxPlayers != nil {
		add("max_players", *update.MaxPlayers)
	}
	if update.IsActive != nil {
		add("is_active", *update.IsActive)
	}

	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE rooms SET %s WHERE id = $1
		RETURNING id, name, host_id, max_players, is_active, game_type, is_private, created_at, updated_at`,
		strings.Join(sets, ", ")), args...)
	return scanRoom(row)
}

func (p *Postgres) DeleteRoom(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (p *Postgres) CreatePlayer(ctx context.Context, player Player) (Player, error) {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO players (id, name, room_id, is_host)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at`,
		player.ID, player.Name, player.RoomID, player.IsHost,
	).Scan(&player.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Player{}, ErrDuplicateName
		}
		return Player{}, fmt.Errorf("insert player: %w", err)
	}
	return player, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), the only constraint CreatePlayer can trip.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (p *Postgres) GetPlayerByID(ctx context.Context, id string) (Player, error) {
	var player Player
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, room_id, is_host, joined_at FROM players WHERE id = $1`, id,
	).Scan(&player.ID, &player.Name, &player.RoomID, &player.IsHost, &player.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrPlayerNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("select player: %w", err)
	}
	return player, nil
}

func (p *Postgres) GetPlayersByRoom(ctx context.Context, roomID string) ([]Player, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, room_id, is_host, joined_at
		FROM players WHERE room_id = $1 ORDER BY joined_at, id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	defer rows.Close()

	var out []Player
	for rows.Next() {
		var player Player
		if err := rows.Scan(&player.ID, &player.Name, &player.RoomID, &player.IsHost, &player.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, player)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdatePlayer(ctx context.Context, id string, update PlayerUpdate) (Player, error) {
	sets := []string{}
	args := []any{id}
	if update.Name != nil {
		args = append(args, *update.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if update.IsHost != nil {
		args = append(args, *update.IsHost)
		sets = append(sets, fmt.Sprintf("is_host = $%d", len(args)))
	}
	if len(sets) == 0 {
		return p.GetPlayerByID(ctx, id)
	}

	var player Player
	err := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE players SET %s WHERE id = $1
		RETURNING id, name, room_id, is_host, joined_at`, strings.Join(sets, ", ")), args...,
	).Scan(&player.ID, &player.Name, &player.RoomID, &player.IsHost, &player.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrPlayerNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("update player: %w", err)
	}
	return player, nil
}

func (p *Postgres) RemovePlayer(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) queryRooms(ctx context.Context, query string, args ...any) ([]Room, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.HostID, &room.MaxPlayers,
			&room.IsActive, &room.GameType, &room.IsPrivate, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

func scanRoom(row *sql.Row) (Room, error) {
	var room Room
	err := row.Scan(&room.ID, &room.Name, &room.HostID, &room.MaxPlayers,
		&room.IsActive, &room.GameType, &room.IsPrivate, &room.CreatedAt, &room.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, ErrRoomNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("select room: %w", err)
	}
	return room, nil
}
