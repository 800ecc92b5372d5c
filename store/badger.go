package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	roomPrefix   = "room/"
	playerPrefix = "player/"
	rosterPrefix = "roster/" // roster/<roomID> -> []string player IDs in join order
)

// Badger is a RoomStore over an embedded badger database with JSON values.
// It gives a single-process deployment durable rosters without an external
// database. Join order is kept in an explicit roster list per room.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) a badger database at dir.
func NewBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) CreateRoom(ctx context.Context, room Room) (Room, error) {
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	err := b.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, roomPrefix+room.ID, room)
	})
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

func (b *Badger) GetRoomByID(ctx context.Context, id string) (Room, error) {
	var room Room
	err := b.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, roomPrefix+id, &room)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Room{}, ErrRoomNotFound
	}
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

func (b *Badger) GetActiveRooms(ctx context.Context, limit int) ([]Room, error) {
	rooms, err := b.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := rooms[:0]
	for _, room := range rooms {
		if room.IsActive {
			out = append(out, room)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *Badger) ListRooms(ctx context.Context) ([]Room, error) {
	var out []Room
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(roomPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var room Room
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &room)
			}); err != nil {
				return err
			}
			out = append(out, room)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (b *Badger) UpdateRoom(ctx context.Context, id string, update RoomUpdate) (Room, error) {
	var room Room
	err := b.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, roomPrefix+id, &room); err != nil {
			return err
		}
		if update.Name != nil {
			room.Name = *update.Name
		}
		if update.HostID != nil {
			room.HostID = *update.HostID
		}
		if update.MaxPlayers != nil {
			room.MaxPlayers = *update.MaxPlayers
		}
		if update.IsActive != nil {
			room.IsActive = *update.IsActive
		}
		room.UpdatedAt = time.Now().UTC()
		return putJSON(txn, roomPrefix+id, room)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Room{}, ErrRoomNotFound
	}
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

func (b *Badger) DeleteRoom(ctx context.Context, id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(roomPrefix + id)); err != nil {
			return err
		}
		var roster []string
		if err := getJSON(txn, rosterPrefix+id, &roster); err == nil {
			for _, pid := range roster {
				if err := txn.Delete([]byte(playerPrefix + pid)); err != nil {
					return err
				}
			}
		}
		if err := txn.Delete([]byte(rosterPrefix + id)); err != nil {
			return err
		}
		return txn.Delete([]byte(roomPrefix + id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrRoomNotFound
	}
	return err
}

func (b *Badger) CreatePlayer(ctx context.Context, player Player) (Player, error) {
	if player.JoinedAt.IsZero() {
		player.JoinedAt = time.Now().UTC()
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		var roster []string
		if err := getJSON(txn, rosterPrefix+player.RoomID, &roster); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		for _, pid := range roster {
			var existing Player
			if err := getJSON(txn, playerPrefix+pid, &existing); err != nil {
				continue
			}
			if strings.EqualFold(existing.Name, player.Name) {
				return ErrDuplicateName
			}
		}
		roster = append(roster, player.ID)
		if err := putJSON(txn, rosterPrefix+player.RoomID, roster); err != nil {
			return err
		}
		return putJSON(txn, playerPrefix+player.ID, player)
	})
	if err != nil {
		return Player{}, err
	}
	return player, nil
}

func (b *Badger) GetPlayerByID(ctx context.Context, id string) (Player, error) {
	var player Player
	err := b.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, playerPrefix+id, &player)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Player{}, ErrPlayerNotFound
	}
	if err != nil {
		return Player{}, err
	}
	return player, nil
}

func (b *Badger) GetPlayersByRoom(ctx context.Context, roomID string) ([]Player, error) {
	var out []Player
	err := b.db.View(func(txn *badger.Txn) error {
		var roster []string
		if err := getJSON(txn, rosterPrefix+roomID, &roster); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		for _, pid := range roster {
			var player Player
			if err := getJSON(txn, playerPrefix+pid, &player); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			out = append(out, player)
		}
		return nil
	})
	return out, err
}

func (b *Badger) UpdatePlayer(ctx context.Context, id string, update PlayerUpdate) (Player, error) {
	var player Player
	err := b.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, playerPrefix+id, &player); err != nil {
			return err
		}
		if update.Name != nil {
			player.Name = *update.Name
		}
		if update.IsHost != nil {
			player.IsHost = *update.IsHost
		}
		return putJSON(txn, playerPrefix+id, player)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Player{}, ErrPlayerNotFound
	}
	if err != nil {
		return Player{}, err
	}
	return player, nil
}

func (b *Badger) RemovePlayer(ctx context.Context, id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		var player Player
		if err := getJSON(txn, playerPrefix+id, &player); err != nil {
			return err
		}
		var roster []string
		if err := getJSON(txn, rosterPrefix+player.RoomID, &roster); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		for i, pid := range roster {
			if pid == id {
				roster = append(roster[:i], roster[i+1:]...)
				break
			}
		}
		if err := putJSON(txn, rosterPrefix+player.RoomID, roster); err != nil {
			return err
		}
		return txn.Delete([]byte(playerPrefix + id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrPlayerNotFound
	}
	return err
}

func (b *Badger) Close() error { return b.db.Close() }

func putJSON(txn *badger.Txn, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
