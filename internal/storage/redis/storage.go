package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tyrowin/tapwars/internal/model"
	"github.com/Tyrowin/tapwars/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, nickname string) (*model.Player, error) {
	fields, err := s.client.HGetAll(ctx, playerKey(nickname)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrPlayerNotFound
	}
	return playerFromHash(nickname, fields)
}

func (s *Storage) EnsurePlayer(ctx context.Context, nickname string) (*model.Player, error) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ensurePlayer(ctx, pipe, nickname)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPlayer(ctx, nickname)
}

// ensurePlayer queues the commands that create a default player hash if absent
func ensurePlayer(ctx context.Context, pipe redis.Pipeliner, nickname string) {
	key := playerKey(nickname)
	pipe.HSetNX(ctx, key, fieldCoins, 0)
	pipe.HSetNX(ctx, key, fieldTapValue, 1)
	pipe.HSetNX(ctx, key, fieldAutoPerSec, 0)
	pipe.HSetNX(ctx, key, fieldTaps, 0)
	pipe.ZAddNX(ctx, tapsIndexKey(), redis.Z{Score: 0, Member: nickname})
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	key := playerKey(player.Nickname)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrPlayerNotFound
	}

	// Use a transaction so the hash and both indexes change together
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldCoins, player.Coins,
			fieldTapValue, player.TapValue,
			fieldAutoPerSec, player.AutoPerSec,
			fieldTaps, player.Taps,
		)
		if player.Icon != nil {
			pipe.HSet(ctx, key, fieldIcon, *player.Icon)
		} else {
			pipe.HDel(ctx, key, fieldIcon)
		}
		pipe.ZAdd(ctx, tapsIndexKey(), redis.Z{Score: float64(player.Taps), Member: player.Nickname})
		if player.AutoPerSec > 0 {
			pipe.SAdd(ctx, autoIndexKey(), player.Nickname)
		} else {
			pipe.SRem(ctx, autoIndexKey(), player.Nickname)
		}
		return nil
	})
	return err
}

func (s *Storage) ApplyTap(ctx context.Context, nickname string) (*model.Player, error) {
	res, err := tapScript.Run(ctx, s.client,
		[]string{playerKey(nickname), tapsIndexKey()}, nickname).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return playerFromHash(nickname, pairsToMap(res))
}

func (s *Storage) SetPlayerIcon(ctx context.Context, nickname, icon string) (*model.Player, error) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ensurePlayer(ctx, pipe, nickname)
		pipe.HSet(ctx, playerKey(nickname), fieldIcon, icon)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPlayer(ctx, nickname)
}

func (s *Storage) CreditAutoIncome(ctx context.Context) (int, error) {
	credited, err := autoIncomeScript.Run(ctx, s.client,
		[]string{autoIndexKey()}, playerKeyPrefix()).Int()
	if err != nil {
		return 0, err
	}
	return credited, nil
}

// TopPlayersByTaps ranks by taps, then nickname. Redis orders equal scores
// by member descending, so every member tied at the cut is loaded before
// sorting and truncating.
func (s *Storage) TopPlayersByTaps(ctx context.Context, limit int) ([]model.Player, error) {
	if limit <= 0 {
		return []model.Player{}, nil
	}
	ranked, err := s.client.ZRevRangeWithScores(ctx, tapsIndexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	nicknames := make([]string, 0, len(ranked))
	for _, z := range ranked {
		nicknames = append(nicknames, z.Member.(string))
	}

	if len(ranked) == limit {
		boundary := ranked[len(ranked)-1].Score
		score := strconv.FormatFloat(boundary, 'f', -1, 64)
		tied, err := s.client.ZRangeByScore(ctx, tapsIndexKey(), &redis.ZRangeBy{Min: score, Max: score}).Result()
		if err != nil {
			return nil, err
		}
		nicknames = nicknames[:0]
		for _, z := range ranked {
			if z.Score > boundary {
				nicknames = append(nicknames, z.Member.(string))
			}
		}
		nicknames = append(nicknames, tied...)
	}

	players, err := s.loadPlayers(ctx, nicknames)
	if err != nil {
		return nil, err
	}
	model.SortByTaps(players)
	if len(players) > limit {
		players = players[:limit]
	}
	return players, nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]model.Player, error) {
	nicknames, err := s.client.ZRange(ctx, tapsIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	players, err := s.loadPlayers(ctx, nicknames)
	if err != nil {
		return nil, err
	}
	model.SortByNickname(players)
	return players, nil
}

// loadPlayers fetches player hashes for the given nicknames in one round trip
func (s *Storage) loadPlayers(ctx context.Context, nicknames []string) ([]model.Player, error) {
	if len(nicknames) == 0 {
		return []model.Player{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(nicknames))
	for i, nickname := range nicknames {
		cmds[i] = pipe.HGetAll(ctx, playerKey(nickname))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	players := make([]model.Player, 0, len(nicknames))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // Index entry without a hash
		}
		player, err := playerFromHash(nicknames[i], fields)
		if err != nil {
			return nil, err
		}
		players = append(players, *player)
	}
	return players, nil
}

// Shop operations

func (s *Storage) SeedShop(ctx context.Context, items []model.ShopItem) error {
	pipe := s.client.Pipeline()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		pipe.HSetNX(ctx, shopKey(), item.ID, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) GetShopItem(ctx context.Context, id string) (*model.ShopItem, error) {
	data, err := s.client.HGet(ctx, shopKey(), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrItemNotFound
		}
		return nil, err
	}

	var item model.ShopItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Storage) ListShopItems(ctx context.Context) ([]model.ShopItem, error) {
	values, err := s.client.HVals(ctx, shopKey()).Result()
	if err != nil {
		return nil, err
	}

	items := make([]model.ShopItem, 0, len(values))
	for _, val := range values {
		var item model.ShopItem
		if err := json.Unmarshal([]byte(val), &item); err != nil {
			continue // Skip invalid data
		}
		items = append(items, item)
	}
	model.SortShopItems(items)
	return items, nil
}

// Chat operations

func (s *Storage) AppendChat(ctx context.Context, msg model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, chatKey(), data).Err()
}

func (s *Storage) RecentChats(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		return []model.ChatMessage{}, nil
	}
	values, err := s.client.LRange(ctx, chatKey(), int64(-limit), -1).Result()
	if err != nil {
		return nil, err
	}

	chats := make([]model.ChatMessage, 0, len(values))
	for _, val := range values {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			continue // Skip invalid data
		}
		chats = append(chats, msg)
	}
	return chats, nil
}

// Ban operations

func (s *Storage) IsBanned(ctx context.Context, nickname string) (bool, error) {
	return s.client.HExists(ctx, bansKey(), nickname).Result()
}

func (s *Storage) UpsertBan(ctx context.Context, ban model.Ban) error {
	return s.client.HSet(ctx, bansKey(), ban.Nickname, ban.Reason).Err()
}

func (s *Storage) DeleteBan(ctx context.Context, nickname string) error {
	return s.client.HDel(ctx, bansKey(), nickname).Err()
}

// pairsToMap converts a flat HGETALL reply from a script into a map
func pairsToMap(pairs []interface{}) map[string]string {
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		k, _ := pairs[i].(string)
		v, _ := pairs[i+1].(string)
		fields[k] = v
	}
	return fields
}

func playerFromHash(nickname string, fields map[string]string) (*model.Player, error) {
	player := &model.Player{Nickname: nickname}

	counters := []struct {
		field string
		dst   *int64
	}{
		{fieldCoins, &player.Coins},
		{fieldTapValue, &player.TapValue},
		{fieldAutoPerSec, &player.AutoPerSec},
		{fieldTaps, &player.Taps},
	}
	for _, c := range counters {
		raw, ok := fields[c.field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("player %q field %s: %w", nickname, c.field, err)
		}
		*c.dst = n
	}

	if icon, ok := fields[fieldIcon]; ok {
		player.Icon = &icon
	}
	return player, nil
}
