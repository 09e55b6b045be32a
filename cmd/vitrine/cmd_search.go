package main

import (
	"errors"
	"fmt"
	"strings"

	"vitrine/internal/search"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// searchCmd queries the catalog once
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog",
	Long: `Runs one catalog search and prints the matching products.

Queries shorter than two characters are not sent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	searcher := search.New(a.client, search.WithTimeout(cfg.GetSearchTimeout()))
	defer searcher.Close()

	ctx, cancel := commandContext()
	defer cancel()

	logger.Info("Searching catalog", zap.String("query", query))
	products, err := searcher.Search(ctx, query)
	if errors.Is(err, search.ErrQueryTooShort) {
		return fmt.Errorf("query %q is too short: use at least %d characters", query, search.MinQueryLength)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out, err := search.Render(query, products, cfg.Storefront.Currency, 80)
	if err != nil {
		logger.Debug("markdown rendering failed", zap.Error(err))
		out = search.RenderMarkdown(query, products, cfg.Storefront.Currency)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
