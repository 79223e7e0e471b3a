package interceptor

import (
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Lock is a held distributed lock. Release is idempotent and safe to call
// after the TTL has expired.
type Lock interface {
	Release() error
}

// LockService serializes interception of a given event id across concurrent
// workers. Acquisition failure is "could not intercept now", never fatal.
type LockService interface {
	Acquire(key string, ttl time.Duration, retries int) (Lock, error)
}

type LockBusyError struct {
	Key string
}

func (e LockBusyError) Error() string {
	return fmt.Sprintf("lock %s is held by another worker", e.Key)
}

type localLockEntry struct {
	token  string
	expiry time.Time
}

// localLockService is the in-process LockService used in tests and
// single-node deployments.
type localLockService struct {
	mu        sync.Mutex
	held      map[string]localLockEntry
	retryWait time.Duration
}

func NewLocalLockService(retryWait time.Duration) LockService {
	return &localLockService{
		held:      make(map[string]localLockEntry),
		retryWait: retryWait,
	}
}

func (s *localLockService) Acquire(key string, ttl time.Duration, retries int) (Lock, error) {
	token := uuid.New().String()
	op := func() error {
		return s.tryAcquire(key, token, ttl)
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryWait), uint64(retries)))
	if err != nil {
		return nil, err
	}
	return &localLock{service: s, key: key, token: token}, nil
}

func (s *localLockService) tryAcquire(key string, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.held[key]
	if ok && time.Now().Before(entry.expiry) {
		return LockBusyError{Key: key}
	}
	s.held[key] = localLockEntry{token: token, expiry: time.Now().Add(ttl)}
	return nil
}

type localLock struct {
	service *localLockService
	key     string
	token   string
}

func (l *localLock) Release() error {
	l.service.mu.Lock()
	defer l.service.mu.Unlock()
	if entry, ok := l.service.held[l.key]; ok && entry.token == l.token {
		delete(l.service.held, l.key)
	}
	return nil
}
