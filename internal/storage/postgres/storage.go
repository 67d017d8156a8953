package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register the "postgres" driver
	_ "github.com/lib/pq"

	"github.com/Tyrowin/tapwars/internal/model"
	"github.com/Tyrowin/tapwars/internal/storage"
)

const playerColumns = `nickname, coins, tap_value, auto_per_sec, taps, icon`

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
}

// New opens the database, verifies the connection and ensures the schema
func New(cfg Config) (*Storage, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// NewWithDB wraps an existing database handle; the schema must already exist
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Close closes the database handle
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*model.Player, error) {
	var (
		p    model.Player
		icon sql.NullString
	)
	if err := row.Scan(&p.Nickname, &p.Coins, &p.TapValue, &p.AutoPerSec, &p.Taps, &icon); err != nil {
		return nil, err
	}
	if icon.Valid {
		p.Icon = &icon.String
	}
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, nickname string) (*model.Player, error) {
	player, err := scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE nickname = $1`, nickname))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	return player, err
}

func (s *Storage) EnsurePlayer(ctx context.Context, nickname string) (*model.Player, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (nickname) VALUES ($1)
		ON CONFLICT (nickname) DO NOTHING
	`, nickname)
	if err != nil {
		return nil, err
	}
	return s.GetPlayer(ctx, nickname)
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players
		SET coins = $2,
			tap_value = $3,
			auto_per_sec = $4,
			taps = $5,
			icon = $6
		WHERE nickname = $1
	`, player.Nickname, player.Coins, player.TapValue, player.AutoPerSec, player.Taps, nullString(player.Icon))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

func (s *Storage) ApplyTap(ctx context.Context, nickname string) (*model.Player, error) {
	player, err := scanPlayer(s.db.QueryRowContext(ctx, `
		UPDATE players
		SET coins = coins + tap_value,
			taps = taps + 1
		WHERE nickname = $1
		RETURNING `+playerColumns, nickname))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	return player, err
}

func (s *Storage) SetPlayerIcon(ctx context.Context, nickname, icon string) (*model.Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx, `
		INSERT INTO players (nickname, icon) VALUES ($1, $2)
		ON CONFLICT (nickname) DO UPDATE SET icon = EXCLUDED.icon
		RETURNING `+playerColumns, nickname, icon))
}

func (s *Storage) CreditAutoIncome(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players
		SET coins = coins + auto_per_sec
		WHERE auto_per_sec > 0
	`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Storage) TopPlayersByTaps(ctx context.Context, limit int) ([]model.Player, error) {
	return s.queryPlayers(ctx, `
		SELECT `+playerColumns+` FROM players
		ORDER BY taps DESC, nickname COLLATE "C" ASC
		LIMIT $1
	`, limit)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]model.Player, error) {
	return s.queryPlayers(ctx, `SELECT `+playerColumns+` FROM players ORDER BY nickname COLLATE "C" ASC`)
}

func (s *Storage) queryPlayers(ctx context.Context, query string, args ...any) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []model.Player{}
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *player)
	}
	return players, rows.Err()
}

// Shop operations

func (s *Storage) SeedShop(ctx context.Context, items []model.ShopItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shop_items (id, name, price, kind, value)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, item.ID, item.Name, item.Price, string(item.Kind), item.Value)
		if err != nil {
			return fmt.Errorf("seed shop item %q: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Storage) GetShopItem(ctx context.Context, id string) (*model.ShopItem, error) {
	var item model.ShopItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, kind, value FROM shop_items WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Price, &item.Kind, &item.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Storage) ListShopItems(ctx context.Context) ([]model.ShopItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, kind, value FROM shop_items ORDER BY price ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ShopItem{}
	for rows.Next() {
		var item model.ShopItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Kind, &item.Value); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Chat operations

func (s *Storage) AppendChat(ctx context.Context, msg model.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (nickname, icon, text, sent_at)
		VALUES ($1, $2, $3, $4)
	`, msg.Nickname, nullString(msg.Icon), msg.Text, msg.SentAt.UTC())
	return err
}

func (s *Storage) RecentChats(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	// Newest first from the index, reversed below into chronological order
	rows, err := s.db.QueryContext(ctx, `
		SELECT nickname, icon, text, sent_at FROM chat_messages
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []model.ChatMessage{}
	for rows.Next() {
		var (
			msg  model.ChatMessage
			icon sql.NullString
		)
		if err := rows.Scan(&msg.Nickname, &icon, &msg.Text, &msg.SentAt); err != nil {
			return nil, err
		}
		if icon.Valid {
			msg.Icon = &icon.String
		}
		chats = append(chats, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(chats)-1; i < j; i, j = i+1, j-1 {
		chats[i], chats[j] = chats[j], chats[i]
	}
	return chats, nil
}

// Ban operations

func (s *Storage) IsBanned(ctx context.Context, nickname string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bans WHERE nickname = $1)`, nickname).Scan(&exists)
	return exists, err
}

func (s *Storage) UpsertBan(ctx context.Context, ban model.Ban) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bans (nickname, reason) VALUES ($1, $2)
		ON CONFLICT (nickname) DO UPDATE SET reason = EXCLUDED.reason
	`, ban.Nickname, ban.Reason)
	return err
}

func (s *Storage) DeleteBan(ctx context.Context, nickname string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bans WHERE nickname = $1`, nickname)
	return err
}
