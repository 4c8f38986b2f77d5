package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// releaseScript 仅当锁仍由本实例持有时才删除
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RunLockRepository 基于 Redis SETNX 的跨实例任务锁，保证同一时刻只有一个副本执行清理
type RunLockRepository struct {
	Redis *redis.Client
	Owner string
}

func NewRunLockRepository(rdb *redis.Client, owner string) *RunLockRepository {
	return &RunLockRepository{Redis: rdb, Owner: owner}
}

func (r *RunLockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.Redis.SetNX(ctx, key, r.Owner, ttl).Result()
}

func (r *RunLockRepository) Release(ctx context.Context, key string) error {
	return r.Redis.Eval(ctx, releaseScript, []string{key}, r.Owner).Err()
}
