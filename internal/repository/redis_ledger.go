package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"go-digital-inventory/internal/model"

	"github.com/redis/go-redis/v9"
)

type redisTransactionRepo struct {
	client *redis.Client
}

func NewRedisTransactionRepo(client *redis.Client) TransactionRepository {
	return &redisTransactionRepo{client}
}

func (r *redisTransactionRepo) Create(ctx context.Context, tx *model.Transaction) error {
	id, err := nextID(ctx, r.client, "transaction")
	if err != nil {
		return err
	}
	tx.ID = id
	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, txKey(id), data, 0)
		pipe.ZAdd(ctx, txIndexKey, redis.Z{Score: float64(id), Member: id})
		return nil
	})
	return err
}

func (r *redisTransactionRepo) FindAll(ctx context.Context) ([]model.Transaction, error) {
	ids, err := r.client.ZRange(ctx, txIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Transaction{}, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, "transaction:"+id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	txs := make([]model.Transaction, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var tx model.Transaction
		if err := json.Unmarshal([]byte(s), &tx); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].OccurredAt.Equal(txs[j].OccurredAt) {
			return txs[i].OccurredAt.After(txs[j].OccurredAt)
		}
		return txs[i].ID > txs[j].ID
	})
	return txs, nil
}

func (r *redisTransactionRepo) FindByID(ctx context.Context, id uint) (*model.Transaction, error) {
	var tx model.Transaction
	if err := getJSON(ctx, r.client, txKey(id), &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *redisTransactionRepo) Delete(ctx context.Context, id uint) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, txKey(id))
		pipe.ZRem(ctx, txIndexKey, id)
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

// The audit log is one sorted set scored by timestamp in milliseconds, so an
// append is a single ZADD.
type redisAuditRepo struct {
	client *redis.Client
}

func NewRedisAuditRepo(client *redis.Client) AuditRepository {
	return &redisAuditRepo{client}
}

func (r *redisAuditRepo) Append(ctx context.Context, entry *model.AuditLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.ZAdd(ctx, auditLogKey, redis.Z{
		Score:  float64(entry.Timestamp.UnixMilli()),
		Member: data,
	}).Err()
}

func (r *redisAuditRepo) List(ctx context.Context, offset, limit int) ([]model.AuditLog, int64, error) {
	total, err := r.client.ZCard(ctx, auditLogKey).Result()
	if err != nil {
		return nil, 0, err
	}
	members, err := r.client.ZRevRange(ctx, auditLogKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, err
	}

	logs := make([]model.AuditLog, 0, len(members))
	for _, m := range members {
		var entry model.AuditLog
		if err := json.Unmarshal([]byte(m), &entry); err != nil {
			return nil, 0, err
		}
		logs = append(logs, entry)
	}
	return logs, total, nil
}

// userRecord keeps the password hash, which model.User hides from JSON.
type userRecord struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

func (u userRecord) toModel() *model.User {
	return &model.User{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.Password,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func recordOf(u *model.User) userRecord {
	return userRecord{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.Password,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type redisUserRepo struct {
	client *redis.Client
}

func NewRedisUserRepo(client *redis.Client) UserRepository {
	return &redisUserRepo{client}
}

func (r *redisUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	raw, err := r.client.Get(ctx, userNameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, uint(id))
}

func (r *redisUserRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var rec userRecord
	if err := getJSON(ctx, r.client, userKey(id), &rec); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *redisUserRepo) Create(ctx context.Context, user *model.User) error {
	id, err := nextID(ctx, r.client, "user")
	if err != nil {
		return err
	}
	claimed, err := r.client.SetNX(ctx, userNameKey(user.Username), id, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return ErrDuplicate
	}

	user.ID = id
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	data, err := json.Marshal(recordOf(user))
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(id), data, 0)
		pipe.SAdd(ctx, usersIndexKey, id)
		return nil
	})
	if err != nil {
		r.client.Del(context.WithoutCancel(ctx), userNameKey(user.Username))
	}
	return err
}

func (r *redisUserRepo) Update(ctx context.Context, user *model.User) error {
	return updateJSON(ctx, r.client, userKey(user.ID), func(rec *userRecord) error {
		// username is the lookup key and stays fixed
		rec.Password = user.Password
		rec.Role = user.Role
		return nil
	})
}

func (r *redisUserRepo) Count(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, usersIndexKey).Result()
}
