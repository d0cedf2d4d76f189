package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/vendor_credits/utils"
)

var ErrLockNotObtained = errors.New("another commit holds this vendor credit or bill")

// Locker serializes commits touching the same credit or bills.
// Keys are taken in sorted order so two commits never wait on each other.
type Locker interface {
	Lock(ctx context.Context, keys []string, ttl time.Duration) (unlock func(), err error)
}

func vendorCreditLockKey(businessId string, creditId int) string {
	return fmt.Sprintf("vendor_credit:%s:%d", businessId, creditId)
}

func billLockKey(businessId string, billId int) string {
	return fmt.Sprintf("bill:%s:%d", businessId, billId)
}

func commitLockKeys(businessId string, creditId int, billIds []int) []string {
	keys := []string{vendorCreditLockKey(businessId, creditId)}
	for _, id := range billIds {
		keys = append(keys, billLockKey(businessId, id))
	}
	keys = utils.UniqueSlice(keys)
	sort.Strings(keys)
	return keys
}

// RedisLocker holds locks in Redis so commits are serialized across instances.
type RedisLocker struct {
	Client     *redislock.Client
	RetryEvery time.Duration
	MaxRetries int
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{Client: client, RetryEvery: 100 * time.Millisecond, MaxRetries: 50}
}

func (l *RedisLocker) Lock(ctx context.Context, keys []string, ttl time.Duration) (func(), error) {
	if l.Client == nil {
		return nil, errors.New("redis lock client is not connected")
	}
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.RetryEvery), l.MaxRetries),
	}

	held := make([]*redislock.Lock, 0, len(keys))
	release := func() {
		// fresh context: the caller's may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Release(releaseCtx)
		}
	}

	for _, key := range keys {
		lock, err := l.Client.Obtain(ctx, "lock:"+key, ttl, opts)
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
			}
			return nil, err
		}
		held = append(held, lock)
	}
	var once sync.Once
	return func() { once.Do(release) }, nil
}

// LocalLocker serializes commits inside one process. Used when Redis is not configured.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = make(map[string]chan struct{})
	}
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock waits for every key in order; ttl is ignored since the holder is in-process.
func (l *LocalLocker) Lock(ctx context.Context, keys []string, _ time.Duration) (func(), error) {
	held := make([]chan struct{}, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, key := range keys {
		ch := l.slot(key)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			release()
			return nil, fmt.Errorf("%w: %s: %v", ErrLockNotObtained, key, ctx.Err())
		}
	}
	var once sync.Once
	return func() { once.Do(release) }, nil
}
