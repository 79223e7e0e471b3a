package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/waypoint-labs/waypoint/agent"
	"github.com/waypoint-labs/waypoint/config"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("cassandra-addr", "localhost:9042", "comma separated list of cassandra host:port")
	cmd.Flags().String("keyspace", "waypoint", "cassandra keyspace")
	cmd.Flags().String("namespace", "waypoint", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("lock-impl", "redis", "implementation of the event lock")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("analytics-file", "", "file to collect navigation analytics into")
	cmd.Flags().String("on-node-failure", "CONTINUE", "policy when a node has no viable outgoing path")
	cmd.Flags().String("on-gateway-failure", "FAIL", "policy when a gateway fork has no viable outgoing path")
	cmd.Flags().Duration("lock-ttl", 10*time.Second, "ttl of the per event interception lock")
	cmd.Flags().Int("lock-retries", 3, "retries when acquiring the per event interception lock")
	cmd.Flags().Duration("lock-retry-wait", 100*time.Millisecond, "wait between lock acquisition retries")
	cmd.Flags().Duration("invoke-timeout", 30*time.Second, "timeout for synchronous bot invoke actions")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.CassandraConfig.Addrs = strings.Split(viper.GetString("cassandra-addr"), ",")
	c.cfg.CassandraConfig.KeySpace = viper.GetString("keyspace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.LockType = config.LockType(viper.GetString("lock-impl"))
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.AnalyticsFile = viper.GetString("analytics-file")
	c.cfg.DefinitionCacheConfig = config.DefaultDefinitionCacheConfig()
	c.cfg.NavigationConfig.OnNormalNodeFailure = config.FailurePolicy(viper.GetString("on-node-failure"))
	c.cfg.NavigationConfig.OnGatewayForkFailure = config.FailurePolicy(viper.GetString("on-gateway-failure"))
	c.cfg.InterceptorConfig.LockTTL = viper.GetDuration("lock-ttl")
	c.cfg.InterceptorConfig.LockRetries = viper.GetInt("lock-retries")
	c.cfg.InterceptorConfig.LockRetryWait = viper.GetDuration("lock-retry-wait")
	c.cfg.InterceptorConfig.InvokeTimeout = viper.GetDuration("invoke-timeout")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "waypoint",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
