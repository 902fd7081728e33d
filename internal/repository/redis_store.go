package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key layout of the key-value adapter.
const (
	itemsIndexKey  = "items"
	txIndexKey     = "transactions"
	auditLogKey    = "audit_logs"
	usersIndexKey  = "users"
	maxWatchRetry  = 5
	seqKeyPrefix   = "seq:"
	unitKeyPrefix  = "unit:"
	uniqueKeyTmpl  = "unique:%s:%s:%s"
	itemKeyTmpl    = "item:%d"
	itemUnitsTmpl  = "item:%d:units"
	txKeyTmpl      = "transaction:%d"
	userKeyTmpl    = "user:%d"
	userNameTmpl   = "user:name:%s"
	unitIndexTmpl  = "units:%s"
	unitKeyTmpl    = "unit:%s:%d"
	unitMemberTmpl = "%s:%d"
)

func itemKey(id uint) string      { return fmt.Sprintf(itemKeyTmpl, id) }
func itemUnitsKey(id uint) string { return fmt.Sprintf(itemUnitsTmpl, id) }
func txKey(id uint) string        { return fmt.Sprintf(txKeyTmpl, id) }
func userKey(id uint) string      { return fmt.Sprintf(userKeyTmpl, id) }
func userNameKey(n string) string { return fmt.Sprintf(userNameTmpl, n) }

// NewRedisStore wires the key-value adapter.
func NewRedisStore(client *redis.Client) *Store {
	return &Store{
		Items:        NewRedisItemRepo(client),
		Units:        NewRedisUnitRepo(client),
		Transactions: NewRedisTransactionRepo(client),
		AuditLogs:    NewRedisAuditRepo(client),
		Users:        NewRedisUserRepo(client),
	}
}

func nextID(ctx context.Context, client *redis.Client, sequence string) (uint, error) {
	id, err := client.Incr(ctx, seqKeyPrefix+sequence).Result()
	if err != nil {
		return 0, fmt.Errorf("allocating %s id: %w", sequence, err)
	}
	return uint(id), nil
}

func getJSON(ctx context.Context, client *redis.Client, key string, v any) error {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// updateJSON runs a read-modify-write on a JSON value under WATCH, retrying
// when another client changes the key in between.
func updateJSON[T any](ctx context.Context, client *redis.Client, key string, mutate func(*T) error) error {
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if err := mutate(&v); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetry; i++ {
		err := client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("updating %s: %w", key, redis.TxFailedErr)
}
