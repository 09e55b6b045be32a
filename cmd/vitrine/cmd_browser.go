package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vitrine/internal/browser"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// browserCmd groups the live-page commands
var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Drive the cart inside a storefront page in Chrome",
}

// browserOpenCmd binds the controller to a page until interrupted
var browserOpenCmd = &cobra.Command{
	Use:   "open [url]",
	Short: "Open a storefront page and bind the cart controller to it",
	Long: `Opens the page in Chrome (launching it unless browser.devtools_url is set),
binds the page's cart triggers to the controller and waits for Ctrl+C.

A path such as /products/42 is resolved against the storefront URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowserOpen,
}

func runBrowserOpen(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	target := a.session.BaseURL()
	if len(args) == 1 {
		target = args[0]
		if strings.HasPrefix(target, "/") {
			target = a.session.Resolve(target)
		}
	}

	bcfg := browser.DefaultConfig()
	bcfg.DebuggerURL = cfg.Browser.DevToolsURL
	bcfg.Headless = cfg.Browser.Headless
	if show, _ := cmd.Flags().GetBool("show"); show {
		bcfg.Headless = false
	}
	bcfg.NavigationTimeoutMs = int(cfg.GetBrowserLaunchTimeout() / time.Millisecond)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := browser.NewSessionManager(bcfg)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mgr.Shutdown(sctx); err != nil {
			logger.Warn("browser shutdown failed", zap.Error(err))
		}
	}()

	sess, err := mgr.CreateSession(ctx, target)
	if err != nil {
		return err
	}
	page, ok := mgr.Page(sess.ID)
	if !ok {
		return errors.New("page closed before binding")
	}

	// Cart requests must carry the page's session cookie to edit its cart.
	cookies, err := browser.PageCookies(page, target)
	if err != nil {
		logger.Warn("page cookies unavailable", zap.Error(err))
	} else {
		a.session.SetCookies(cookies)
	}

	view := browser.NewDOMView(page)
	ctrl := a.controller(view)
	binding, err := browser.Bind(ctx, page, ctrl, view)
	if err != nil {
		return err
	}
	defer binding.Stop()

	logger.Info("Bound cart controller",
		zap.String("url", target),
		zap.String("session", sess.ID),
		zap.String("chrome", mgr.ControlURL()))
	fmt.Fprintf(cmd.OutOrStdout(), "Cart bound to %s (Ctrl+C to stop)\n", target)
	<-ctx.Done()
	return nil
}
