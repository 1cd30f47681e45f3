package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/quesster/client-sdk-go/client"
	"github.com/quesster/client-sdk-go/config"
	"github.com/quesster/client-sdk-go/metrics"
	"github.com/quesster/client-sdk-go/services/community"
	"github.com/quesster/client-sdk-go/services/contract"
	"github.com/quesster/client-sdk-go/services/profile"
	"github.com/quesster/client-sdk-go/services/quest"
	"github.com/quesster/client-sdk-go/services/quiz"
	"github.com/quesster/client-sdk-go/services/transaction"
	"github.com/quesster/client-sdk-go/storage"
	"github.com/quesster/client-sdk-go/wallet"
)

// store 存储需同时满足三类契约
type store interface {
	profile.Store
	community.Store
	quiz.Bank
	AddQuestion(ctx context.Context, e *storage.BankEntry) (int64, error)
	Deactivate(ctx context.Context, id int64) error
}

// app 命令共享的依赖
type app struct {
	settings *config.Settings
	logger   client.Logger
	registry *prometheus.Registry

	eth    client.EthClient
	wallet *wallet.Context
	store  store
	close  []func() error

	reader    contract.Service
	tx        transaction.Service
	profiles  profile.Service
	community community.Service
	quizzes   quiz.Service
	orch      *quest.Orchestrator
}

func newApp(v *viper.Viper, cfgFile string) (*app, error) {
	// 1. 配置与日志
	settings, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	a := &app{
		settings: settings,
		logger:   client.NewLogmaticLogger(settings.LogLevel),
		registry: prometheus.NewRegistry(),
	}
	settings.RPC.Logger = a.logger

	// 2. 节点
	eth, err := client.NewEthClient(settings.RPC)
	if err != nil {
		return nil, fmt.Errorf("connect %s failed: %w", settings.RPC.Endpoint, err)
	}
	a.eth = eth
	a.close = append(a.close, eth.Close)

	// 3. 钱包（只读命令可以没有）
	kw, err := loadWallet(settings, eth)
	if err != nil {
		a.Close()
		return nil, err
	}
	if kw != nil {
		a.wallet = kw.Context()
	}

	// 4. 存储
	if settings.DatabaseURL != "" {
		pg, err := storage.OpenPostgres(settings.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = pg
		a.close = append(a.close, pg.Close)
	} else {
		a.logger.Warn("no database configured, using in-memory store")
		a.store = storage.NewMemoryStore()
	}

	// 5. 服务
	clock := clockwork.NewRealClock()
	m := metrics.New(a.registry)
	a.reader = contract.NewService(eth, settings.Services)
	a.tx = transaction.NewService(eth, settings.Services, transaction.WithLogger(a.logger))
	a.profiles = profile.NewService(a.store, profile.WithClock(clock), profile.WithLogger(a.logger))
	a.community = community.NewService(a.store, clock)
	a.quizzes = quiz.NewService(a.store, clock)
	a.orch = quest.NewOrchestrator(settings.Services, a.tx, a.reader,
		quest.WithClock(clock),
		quest.WithLogger(a.logger),
		quest.WithMetrics(m),
		quest.WithScoreSyncer(a.profiles),
		quest.WithListingPublisher(a.community),
	)
	return a, nil
}

func loadWallet(s *config.Settings, eth client.EthClient) (*wallet.KeyWallet, error) {
	switch {
	case s.KeystorePath != "":
		return wallet.LoadKeystore(s.KeystorePath, s.KeystorePassword, eth, s.ChainID)
	case s.PrivateKey != "":
		return wallet.NewKeyWalletFromHex(s.PrivateKey, eth, s.ChainID)
	}
	return nil, nil
}

// requireWallet 写操作需要钱包
func (a *app) requireWallet() (*wallet.Context, error) {
	if !a.wallet.Connected() {
		return nil, errors.New("no wallet configured: set --keystore or --private-key")
	}
	return a.wallet, nil
}

// player 未指定地址时使用钱包地址
func (a *app) player(addr string) (common.Address, error) {
	if addr != "" {
		return parseAddress(addr)
	}
	w, err := a.requireWallet()
	if err != nil {
		return common.Address{}, err
	}
	return w.Address, nil
}

// serveMetrics 在 MetricsAddr 上暴露 /metrics，返回关闭函数
func (a *app) serveMetrics() func(context.Context) error {
	if a.settings.MetricsAddr == "" {
		return func(context.Context) error { return nil }
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.settings.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", a.settings.MetricsAddr)
	return srv.Shutdown
}

// Close 释放连接
func (a *app) Close() {
	for i := len(a.close) - 1; i >= 0; i-- {
		if err := a.close[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}
