//go:build wireinject
// +build wireinject

package di

import (
	"TradeDesk/internal/domain/repository"
	"TradeDesk/internal/service/notify"
	"TradeDesk/internal/usecase"
	"TradeDesk/pkg/config"
	"TradeDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideStateStore,
		ProvideBackend,
		ProvideNotifyHub,
		wire.Bind(new(repository.Notifier), new(*notify.Hub)),
		ProvideChangePublisher,
		ProvideLoginLimiter,

		// Use cases
		ProvideConnectionTracker,
		ProvideSessionStore,
		usecase.NewParamStore,
		ProvideTickerSync,
		usecase.NewTickerEditor,
		usecase.NewTradingControl,
		ProvideBrokerService,
		usecase.NewAccountService,

		// HTTP
		ProvideRouter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
