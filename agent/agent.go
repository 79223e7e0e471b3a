package agent

import (
	"sync"
	"time"

	"github.com/waypoint-labs/waypoint/analytics"
	"github.com/waypoint-labs/waypoint/config"
	"github.com/waypoint-labs/waypoint/expression"
	"github.com/waypoint-labs/waypoint/graph"
	"github.com/waypoint-labs/waypoint/interceptor"
	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/metadata"
	"github.com/waypoint-labs/waypoint/model"
	"github.com/waypoint-labs/waypoint/navigator"
	"github.com/waypoint-labs/waypoint/persistence/cassandra"
	"github.com/waypoint-labs/waypoint/persistence/redis"
	"github.com/waypoint-labs/waypoint/rest"
	"go.uber.org/zap"
)

type Agent struct {
	Config          config.Config
	metadataService metadata.Service
	navigators      *navigator.Registry
	interceptor     *interceptor.Interceptor
	poller          *navigator.BoundaryEventPoller
	contexts        *model.ContextRegistry
	httpServer      *rest.Server
	shutdown        bool
	shutdownLock    sync.Mutex
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config: conf,
	}
	setup := []func() error{
		a.setupLogger,
		a.setupAnalytics,
		a.setupMetadataService,
		a.setupNavigators,
		a.setupInterceptor,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupLogger() error {
	return logger.InitLogger(a.Config.LogLevel)
}

func (a *Agent) setupAnalytics() error {
	if len(a.Config.AnalyticsFile) == 0 {
		return nil
	}
	return analytics.InitDataCollector(analytics.DataCollectorConfig{
		FileName:      a.Config.AnalyticsFile,
		CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
	})
}

func (a *Agent) setupMetadataService() error {
	var storage metadata.Storage
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		storage = redis.NewRedisMetadataStorage(redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
			PoolSize:  a.Config.RedisConfig.PoolSize,
			Password:  a.Config.RedisConfig.Password,
		})
	case config.STORAGE_TYPE_CASSANDRA:
		storage = cassandra.NewCassandraMetadataStorage(cassandra.Config{
			Addrs:    a.Config.CassandraConfig.Addrs,
			KeySpace: a.Config.CassandraConfig.KeySpace,
		})
	default:
		storage = metadata.NewInmemStorage()
	}
	cache, err := graph.NewDefinitionCache(a.Config.DefinitionCacheConfig)
	if err != nil {
		return err
	}
	a.metadataService = metadata.NewService(storage, cache)
	return nil
}

func (a *Agent) setupNavigators() error {
	cache, err := graph.NewDefinitionCache(a.Config.DefinitionCacheConfig)
	if err != nil {
		return err
	}
	nav := navigator.NewBpmnNavigator(cache, expression.NewExprEvaluator(), navigator.DeferringSelector{}, a.Config.NavigationConfig)
	a.navigators = navigator.NewRegistry()
	a.navigators.Register(navigator.GRAPH_TYPE_BPMN, nav)
	a.contexts = model.NewContextRegistry()
	a.poller = navigator.NewBoundaryEventPoller(nav, time.Second, func(loc model.Location, decision *model.NavigationDecision) {
		logger.Info("boundary event fired", zap.String("object", loc.ObjectId), zap.String("location", loc.LocationId),
			zap.Int("nextLocations", len(decision.NextLocations)))
	})
	a.poller.Start()
	return nil
}

func (a *Agent) setupInterceptor() error {
	var locks interceptor.LockService
	switch a.Config.LockType {
	case config.LOCK_TYPE_REDIS:
		locks = redis.NewRedisLockService(redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
			PoolSize:  a.Config.RedisConfig.PoolSize,
			Password:  a.Config.RedisConfig.Password,
		}, a.Config.InterceptorConfig.LockRetryWait)
	default:
		locks = interceptor.NewLocalLockService(a.Config.InterceptorConfig.LockRetryWait)
	}
	a.interceptor = interceptor.NewInterceptor(a.Config.InterceptorConfig, locks, expression.NewExprEvaluator())

	// stored bots survive restarts
	bots, err := a.metadataService.GetStorage().ListBotDefinitions()
	if err != nil {
		logger.Error("error loading stored bots", zap.Error(err))
		return nil
	}
	for i := range bots {
		a.interceptor.RegisterBot(&bots[i])
	}
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.metadataService, a.navigators, a.interceptor, a.contexts)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			a.poller.Stop()
			return nil
		},
		func() error {
			return a.interceptor.StopAllActiveExecutions("server shutdown")
		},
		func() error {
			a.interceptor.Close()
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Sync()
	return nil
}
