package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/bank-ledger/internal/config"
	"github.com/nimasrn/bank-ledger/internal/notify"
	"github.com/nimasrn/bank-ledger/pkg/logger"
	"github.com/nimasrn/bank-ledger/pkg/prom"
	"github.com/nimasrn/bank-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	cfg := &notify.ClientConfig{
		Providers: []notify.ProviderConfig{
			{Name: "primary", URL: config.Get().NotifierPrimaryUrl, Weight: 100},
			{Name: "secondary", URL: config.Get().NotifierSecondaryUrl, Weight: 80},
		},
		Timeout:                 time.Second * 5,
		MaxRetries:              3,
		RetryDelay:              time.Millisecond * 100,
		MaxConns:                1000,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	}
	client, err := notify.NewClient(cfg)
	if err != nil {
		logger.Error("failed to create provider client", "error", err)
		return
	}

	idempotencyConfig := notify.DefaultIdempotencyConfig()
	idempotencyService := notify.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := notify.NewService(redisAdap)
	if err != nil {
		logger.Error("failed to create the receipt service", "error", err)
		return
	}
	service.RegisterProcessor(notify.NewReceiptProcessor(client, idempotencyService))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start the receipt service", "error", err)
		}
	}()

	select {
	case <-c:
		service.Stop()
		client.Close()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
