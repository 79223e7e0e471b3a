package config

import "time"

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"
const STORAGE_TYPE_CASSANDRA StorageType = "cassandra"

type LockType string

const LOCK_TYPE_REDIS LockType = "redis"
const LOCK_TYPE_LOCAL LockType = "local"

// FailurePolicy controls what happens when a node or gateway has no viable
// outgoing path left after condition filtering.
type FailurePolicy string

const FAILURE_POLICY_CONTINUE FailurePolicy = "CONTINUE"
const FAILURE_POLICY_WAIT FailurePolicy = "WAIT"
const FAILURE_POLICY_FAIL FailurePolicy = "FAIL"

type Config struct {
	RedisConfig     RedisConfig
	CassandraConfig CassandraConfig
	HttpPort        int
	StorageType     StorageType
	LockType        LockType
	LogLevel        string

	DefinitionCacheConfig DefinitionCacheConfig
	InterceptorConfig     InterceptorConfig
	NavigationConfig      NavigationConfig
	AnalyticsFile         string
}

type RedisConfig struct {
	Addrs     []string
	Namespace string
	PoolSize  int
	Password  string
}

type CassandraConfig struct {
	Addrs    []string
	KeySpace string
}

type DefinitionCacheConfig struct {
	MaxEntries int
	MaxBytes   int64
}

type InterceptorConfig struct {
	LockTTL       time.Duration
	LockRetries   int
	LockRetryWait time.Duration
	InvokeTimeout time.Duration
}

type NavigationConfig struct {
	OnNormalNodeFailure  FailurePolicy
	OnGatewayForkFailure FailurePolicy
}

func DefaultNavigationConfig() NavigationConfig {
	return NavigationConfig{
		OnNormalNodeFailure:  FAILURE_POLICY_FAIL,
		OnGatewayForkFailure: FAILURE_POLICY_FAIL,
	}
}

func DefaultInterceptorConfig() InterceptorConfig {
	return InterceptorConfig{
		LockTTL:       10 * time.Second,
		LockRetries:   3,
		LockRetryWait: 100 * time.Millisecond,
		InvokeTimeout: 30 * time.Second,
	}
}

func DefaultDefinitionCacheConfig() DefinitionCacheConfig {
	return DefinitionCacheConfig{
		MaxEntries: 128,
		MaxBytes:   32 << 20,
	}
}
