package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("lock held by another instance")

// só apaga a chave se o token ainda for o nosso
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker implementa lock distribuído com SET NX PX. Usado quando várias
// instâncias da API compartilham o mesmo banco.
type Locker struct {
	r      *redis.Client
	unlock *redis.Script
}

func NewLocker(r *redis.Client) *Locker {
	return &Locker{r: r, unlock: redis.NewScript(unlockLua)}
}

// Acquire devolve a função de liberação; pode ser chamada mais de uma vez
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := "lock:" + key

	ok, err := l.r.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlock.Run(ctx, l.r, []string{lk}, token).Err()
	}, nil
}
