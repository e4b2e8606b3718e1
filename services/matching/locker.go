package matching

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// PairLocker сериализует операции над одной парой пользователей.
// Корректность обеспечивают условные UPDATE в базе, блокировка убирает лишние конфликты
type PairLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalPairLocker - блокировка в пределах процесса
type LocalPairLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalPairLocker() *LocalPairLocker {
	return &LocalPairLocker{locks: make(map[string]*localLock)}
}

func (l *LocalPairLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(key, lk)
		})
	}, nil
}

func (l *LocalPairLocker) release(key string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}

// снимаем блокировку, только если она все еще наша
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisPairLocker - распределенная блокировка пары (SET NX PX) для нескольких инстансов сервиса
type RedisPairLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

func NewRedisPairLocker(client *redis.Client, ttl time.Duration) *RedisPairLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisPairLocker{client: client, ttl: ttl, retryDelay: 20 * time.Millisecond}
}

func (l *RedisPairLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire pair lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// контекст запроса мог уже истечь, а ключ нужно снять
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}
