package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go-digital-inventory/internal/model"

	"github.com/redis/go-redis/v9"
)

// Stock scripts return -1 when the item hash does not exist.
var (
	decrementStockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local stock = tonumber(redis.call('HGET', KEYS[1], 'stock'))
local qty = tonumber(ARGV[1])
if stock < qty then
	return 0
end
redis.call('HINCRBY', KEYS[1], 'stock', -qty)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2], 'updated_by', ARGV[3])
return 1
`)

	incrementStockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
redis.call('HINCRBY', KEYS[1], 'stock', tonumber(ARGV[1]))
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2], 'updated_by', ARGV[3])
return 1
`)

	// recountStockScript counts the units listed in the item's unit set
	// whose stored JSON has the available status and writes the count as
	// stock. KEYS[1] is the item hash and KEYS[2] its unit set; unit values
	// live under ARGV[1] followed by the set member.
	recountStockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local count = 0
for _, member in ipairs(redis.call('SMEMBERS', KEYS[2])) do
	local raw = redis.call('GET', ARGV[1] .. member)
	if raw and cjson.decode(raw).status == ARGV[2] then
		count = count + 1
	end
end
redis.call('HSET', KEYS[1], 'stock', count, 'updated_at', ARGV[3])
return count
`)

	// hsetIfExistsScript applies the field/value pairs in ARGV to an
	// existing hash only.
	hsetIfExistsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)
)

type redisItemRepo struct {
	client *redis.Client
}

func NewRedisItemRepo(client *redis.Client) ItemRepository {
	return &redisItemRepo{client}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func itemFields(item *model.Item) map[string]interface{} {
	return map[string]interface{}{
		"id":         item.ID,
		"platform":   item.Platform,
		"kind":       string(item.Kind),
		"stock":      item.Stock,
		"cost_price": item.CostPrice,
		"sale_price": item.SalePrice,
		"expires_at": formatTime(item.ExpiresAt),
		"created_at": formatTime(item.CreatedAt),
		"updated_at": formatTime(item.UpdatedAt),
		"updated_by": item.UpdatedBy,
	}
}

func itemFromHash(h map[string]string) (*model.Item, error) {
	id, err := strconv.ParseUint(h["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decoding item id: %w", err)
	}
	stock, _ := strconv.Atoi(h["stock"])
	cost, _ := strconv.ParseInt(h["cost_price"], 10, 64)
	sale, _ := strconv.ParseInt(h["sale_price"], 10, 64)
	return &model.Item{
		ID:        uint(id),
		Platform:  h["platform"],
		Kind:      model.Kind(h["kind"]),
		Stock:     stock,
		CostPrice: cost,
		SalePrice: sale,
		ExpiresAt: parseTime(h["expires_at"]),
		CreatedAt: parseTime(h["created_at"]),
		UpdatedAt: parseTime(h["updated_at"]),
		UpdatedBy: h["updated_by"],
	}, nil
}

func (r *redisItemRepo) Create(ctx context.Context, item *model.Item) error {
	id, err := nextID(ctx, r.client, "item")
	if err != nil {
		return err
	}
	now := time.Now()
	item.ID = id
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, itemKey(id), itemFields(item))
		pipe.ZAdd(ctx, itemsIndexKey, redis.Z{Score: float64(id), Member: id})
		return nil
	})
	return err
}

func (r *redisItemRepo) FindAll(ctx context.Context) ([]model.Item, error) {
	ids, err := r.client.ZRange(ctx, itemsIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	cmds, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.HGetAll(ctx, "item:"+id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(cmds))
	for _, cmd := range cmds {
		h := cmd.(*redis.MapStringStringCmd).Val()
		if len(h) == 0 {
			continue
		}
		item, err := itemFromHash(h)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func (r *redisItemRepo) FindByID(ctx context.Context, id uint) (*model.Item, error) {
	h, err := r.client.HGetAll(ctx, itemKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	return itemFromHash(h)
}

func (r *redisItemRepo) Update(ctx context.Context, item *model.Item, columns ...string) error {
	all := itemFields(item)
	columns = append(columns, "updated_at", "updated_by")
	args := make([]interface{}, 0, len(columns)*2)
	for _, c := range columns {
		v, ok := all[c]
		if !ok {
			return fmt.Errorf("unknown item column %q", c)
		}
		args = append(args, c, v)
	}

	res, err := hsetIfExistsScript.Run(ctx, r.client, []string{itemKey(item.ID)}, args...).Int()
	if err != nil {
		return err
	}
	if res < 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisItemRepo) Delete(ctx context.Context, id uint) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, itemKey(id))
		pipe.ZRem(ctx, itemsIndexKey, id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisItemRepo) DecrementStock(ctx context.Context, id uint, quantity int, updatedBy string) (bool, error) {
	res, err := decrementStockScript.Run(ctx, r.client, []string{itemKey(id)},
		quantity, formatTime(time.Now()), updatedBy).Int()
	if err != nil {
		return false, err
	}
	switch res {
	case -1:
		return false, ErrNotFound
	case 0:
		return false, nil
	}
	return true, nil
}

func (r *redisItemRepo) IncrementStock(ctx context.Context, id uint, quantity int, updatedBy string) error {
	res, err := incrementStockScript.Run(ctx, r.client, []string{itemKey(id)},
		quantity, formatTime(time.Now()), updatedBy).Int()
	if err != nil {
		return err
	}
	if res < 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisItemRepo) RecountStock(ctx context.Context, id uint) (int, error) {
	res, err := recountStockScript.Run(ctx, r.client, []string{itemKey(id), itemUnitsKey(id)},
		unitKeyPrefix, model.StatusAvailable, formatTime(time.Now())).Int()
	if err != nil {
		return 0, err
	}
	if res < 0 {
		return 0, ErrNotFound
	}
	return res, nil
}

// DeleteWithUnits drops the item hash first and then its units one by one.
// A unit added in between finds the item gone on its recount.
func (r *redisItemRepo) DeleteWithUnits(ctx context.Context, id uint) (int64, error) {
	if err := r.Delete(ctx, id); err != nil {
		return 0, err
	}
	units := &redisUnitRepo{r.client}
	return units.deleteByItem(ctx, id)
}
