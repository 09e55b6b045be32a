package main

import (
	"context"

	"vitrine/cmd/vitrine/shop"
	"vitrine/internal/config"
	"vitrine/internal/logging"
	"vitrine/internal/search"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runInteractive starts the storefront TUI.
func runInteractive(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	bridge := shop.NewBridge()
	ctrl := a.controller(bridge)

	searcher := search.New(a.client,
		search.WithDelay(cfg.GetSearchDebounce()),
		search.WithTimeout(cfg.GetSearchTimeout()),
	)
	defer searcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher, err := config.NewWatcher(configPath, func(c *config.Config) {
		ctrl.SetNotificationDuration(c.GetNotificationDuration())
		logging.SetLevel(c.Logging.Level)
		logging.Config("reloaded %s", configPath)
	})
	if err != nil {
		logger.Warn("config hot reload disabled", zap.Error(err))
	} else if err := watcher.Start(ctx); err != nil {
		logger.Warn("config hot reload disabled", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	logger.Debug("starting interactive storefront", zap.String("base_url", cfg.Storefront.BaseURL))
	m := shop.New(shop.Config{
		StoreName:      cfg.Storefront.Name,
		Currency:       cfg.Storefront.Currency,
		CartPath:       cfg.Storefront.CartPath,
		RequestTimeout: cfg.GetRequestTimeout(),
		UI:             cfg.UI,
		Styles:         a.styles(),
	}, ctrl, bridge, searcher, a.session)
	return shop.Run(m)
}
