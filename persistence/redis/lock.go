package redis

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	rd "github.com/go-redis/redis/v9"
	"github.com/google/uuid"
	"github.com/waypoint-labs/waypoint/interceptor"
	"github.com/waypoint-labs/waypoint/persistence"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock grabbed by another worker is never released from here.
var releaseScript = rd.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ interceptor.LockService = new(redisLockService)

type redisLockService struct {
	*baseDao
	retryWait time.Duration
}

func NewRedisLockService(conf Config, retryWait time.Duration) *redisLockService {
	return &redisLockService{
		baseDao:   newBaseDao(conf),
		retryWait: retryWait,
	}
}

func (s *redisLockService) Acquire(key string, ttl time.Duration, retries int) (interceptor.Lock, error) {
	namespaceKey := s.getNamespaceKey(persistence.LOCK_PREFIX + key)
	token := uuid.New().String()
	op := func() error {
		ok, err := s.redisClient.SetNX(context.Background(), namespaceKey, token, ttl).Result()
		if err != nil {
			return backoff.Permanent(persistence.StorageLayerError{Message: err.Error()})
		}
		if !ok {
			return interceptor.LockBusyError{Key: key}
		}
		return nil
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryWait), uint64(retries)))
	if err != nil {
		return nil, err
	}
	return &redisLock{service: s, key: namespaceKey, token: token}, nil
}

type redisLock struct {
	service *redisLockService
	key     string
	token   string
}

func (l *redisLock) Release() error {
	err := releaseScript.Run(context.Background(), l.service.redisClient, []string{l.key}, l.token).Err()
	if err != nil && err != rd.Nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
