package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go-digital-inventory/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	accountCollection = "account"
	codeCollection    = "code"
)

func collectionOf(kind model.Kind) string {
	if kind.IsAccount() {
		return accountCollection
	}
	return codeCollection
}

func unitKey(collection string, id uint) string {
	return fmt.Sprintf(unitKeyTmpl, collection, id)
}

func unitIndexKey(collection string) string {
	return fmt.Sprintf(unitIndexTmpl, collection)
}

func uniqueUnitKey(collection, platform, key string) string {
	return fmt.Sprintf(uniqueKeyTmpl, collection, platform, key)
}

type redisUnitRepo struct {
	client *redis.Client
}

func NewRedisUnitRepo(client *redis.Client) UnitRepository {
	return &redisUnitRepo{client}
}

func (r *redisUnitRepo) Create(ctx context.Context, unit *model.Unit) error {
	if unit.Payload == nil {
		return model.ErrPayloadMismatch
	}
	col := collectionOf(unit.Kind)
	unique := uniqueUnitKey(col, unit.Platform, unit.Payload.Key())

	claimed, err := r.client.SetNX(ctx, unique, "", 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return ErrDuplicate
	}

	if err := r.insert(ctx, col, unique, unit); err != nil {
		r.client.Del(context.WithoutCancel(ctx), unique)
		return err
	}
	return nil
}

func (r *redisUnitRepo) insert(ctx context.Context, col, unique string, unit *model.Unit) error {
	id, err := nextID(ctx, r.client, col)
	if err != nil {
		return err
	}
	unit.ID = id
	data, err := json.Marshal(unit)
	if err != nil {
		return err
	}

	member := fmt.Sprintf(unitMemberTmpl, col, id)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, unitKey(col, id), data, 0)
		pipe.ZAdd(ctx, unitIndexKey(col), redis.Z{Score: float64(id), Member: id})
		pipe.SAdd(ctx, itemUnitsKey(unit.ItemID), member)
		pipe.Set(ctx, unique, member, 0)
		return nil
	})
	return err
}

func (r *redisUnitRepo) Exists(ctx context.Context, kind model.Kind, platform, key string) (bool, error) {
	n, err := r.client.Exists(ctx, uniqueUnitKey(collectionOf(kind), platform, key)).Result()
	return n > 0, err
}

func (r *redisUnitRepo) FindByID(ctx context.Context, kind model.Kind, id uint) (*model.Unit, error) {
	var u model.Unit
	if err := getJSON(ctx, r.client, unitKey(collectionOf(kind), id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// load fetches units by key, skipping keys that vanished in between.
func (r *redisUnitRepo) load(ctx context.Context, keys []string) ([]model.Unit, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	units := make([]model.Unit, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var u model.Unit
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// keysFor resolves the unit keys of one collection, narrowed to an item when
// the filter names one.
func (r *redisUnitRepo) keysFor(ctx context.Context, col string, itemID *uint) ([]string, error) {
	if itemID != nil {
		members, err := r.client.SMembers(ctx, itemUnitsKey(*itemID)).Result()
		if err != nil {
			return nil, err
		}
		var keys []string
		for _, m := range members {
			if strings.HasPrefix(m, col+":") {
				keys = append(keys, unitKeyPrefix+m)
			}
		}
		return keys, nil
	}

	ids, err := r.client.ZRange(ctx, unitIndexKey(col), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, unitKeyPrefix+col+":"+id)
	}
	return keys, nil
}

func (r *redisUnitRepo) listCollection(ctx context.Context, col string, filter UnitFilter) ([]model.Unit, error) {
	keys, err := r.keysFor(ctx, col, filter.ItemID)
	if err != nil {
		return nil, err
	}
	units, err := r.load(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]model.Unit, 0, len(units))
	for _, u := range units {
		if filter.Platform != "" && !strings.EqualFold(u.Platform, filter.Platform) {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *redisUnitRepo) List(ctx context.Context, filter UnitFilter) ([]model.Unit, []model.Unit, error) {
	accounts, err := r.listCollection(ctx, accountCollection, filter)
	if err != nil {
		return nil, nil, err
	}
	codes, err := r.listCollection(ctx, codeCollection, filter)
	if err != nil {
		return nil, nil, err
	}
	return accounts, codes, nil
}

func (r *redisUnitRepo) UpdateStatus(ctx context.Context, unit *model.Unit) error {
	key := unitKey(collectionOf(unit.Kind), unit.ID)
	return updateJSON(ctx, r.client, key, func(stored *model.Unit) error {
		stored.Status = unit.Status
		stored.SoldAt = unit.SoldAt
		stored.SoldTo = unit.SoldTo
		return nil
	})
}

func (r *redisUnitRepo) remove(ctx context.Context, u *model.Unit) (bool, error) {
	col := collectionOf(u.Kind)
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, unitKey(col, u.ID))
		pipe.ZRem(ctx, unitIndexKey(col), u.ID)
		pipe.SRem(ctx, itemUnitsKey(u.ItemID), fmt.Sprintf(unitMemberTmpl, col, u.ID))
		pipe.Del(ctx, uniqueUnitKey(col, u.Platform, u.Label()))
		return nil
	})
	if err != nil {
		return false, err
	}
	return del.Val() > 0, nil
}

func (r *redisUnitRepo) Delete(ctx context.Context, kind model.Kind, id uint) error {
	u, err := r.FindByID(ctx, kind, id)
	if err != nil {
		return err
	}
	removed, err := r.remove(ctx, u)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (r *redisUnitRepo) deleteByItem(ctx context.Context, itemID uint) (int64, error) {
	members, err := r.client.SMembers(ctx, itemUnitsKey(itemID)).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, unitKeyPrefix+m)
	}
	units, err := r.load(ctx, keys)
	if err != nil {
		return 0, err
	}

	var removed int64
	for i := range units {
		ok, err := r.remove(ctx, &units[i])
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	if err := r.client.Del(ctx, itemUnitsKey(itemID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return removed, err
	}
	return removed, nil
}
