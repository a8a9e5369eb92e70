package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gin-gonic/gin/binding"
	"github.com/simp-lee/logger"
	"github.com/spf13/cobra"

	"github.com/simp-lee/dashboard/internal/config"
	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/gateway"
	"github.com/simp-lee/dashboard/internal/listing"
	"github.com/simp-lee/dashboard/internal/module/listview"
	"github.com/simp-lee/dashboard/internal/pkg"
)

type listOptions struct {
	configPath string
	baseURL    string
	logLevel   string
	page       int
	pageSize   int
	filter     string
	search     string
	category   string
}

func newListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:       "list users|products",
		Short:     "Print one page of users or products",
		Long:      `Fetch one page of a collection and print it as a table followed by the pagination line.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.KindUsers), string(domain.KindProducts)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file (upstream and log settings)")
	f.StringVar(&opts.baseURL, "base-url", "", "upstream base URL, overrides the config file")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level when no config file is given")
	f.IntVarP(&opts.page, "page", "p", 1, "page number")
	f.IntVarP(&opts.pageSize, "page-size", "n", listing.DefaultPageSize, "entries per page: 5, 10, 25 or 50")
	f.StringVarP(&opts.filter, "filter", "f", "", "field filter as column=value, e.g. title=ssd")
	f.StringVarP(&opts.search, "search", "s", "", "narrow the fetched page by a search term")
	f.StringVar(&opts.category, "category", "", "product category, e.g. laptops")
	return cmd
}

func runList(ctx context.Context, out io.Writer, kindArg string, opts listOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	kind, err := domain.ParseKind(kindArg)
	if err != nil {
		return err
	}
	res, err := listing.ResourceFor(kind)
	if err != nil {
		return err
	}

	q := pkg.ListQuery{
		Page:     opts.page,
		PageSize: opts.pageSize,
		Search:   strings.TrimSpace(opts.search),
		Category: strings.TrimSpace(opts.category),
	}
	if opts.filter != "" {
		field, value, ok := strings.Cut(opts.filter, "=")
		if !ok {
			return fmt.Errorf("invalid --filter %q: want column=value", opts.filter)
		}
		q.FilterField, q.FilterValue = strings.TrimSpace(field), strings.TrimSpace(value)
	}
	if err := binding.Validator.ValidateStruct(&q); err != nil {
		return fmt.Errorf("invalid list options: %w", err)
	}

	s, err := listview.StateFor(res, q)
	if err != nil {
		return err
	}

	upstream, logCfg, err := listSettings(opts)
	if err != nil {
		return err
	}
	log, err := config.SetupLogger(logCfg, logger.WithConsoleWriter(os.Stderr))
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = log.Close() }()

	gw, err := gateway.New(&gateway.Options{
		BaseURL: upstream.BaseURL,
		Timeout: config.Duration(upstream.Timeout, gateway.DefaultTimeout),
		Logger:  log.Logger,
	})
	if err != nil {
		return fmt.Errorf("setup gateway: %w", err)
	}

	s, err = listing.Run(ctx, gw, s)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", kind, err)
	}

	return printPage(ctx, out, res, s)
}

// listSettings returns the upstream and log settings: the config file's when
// --config is set, defaults otherwise, with --base-url applied last.
// An empty base URL falls back to the public API.
func listSettings(opts listOptions) (config.UpstreamConfig, *config.LogConfig, error) {
	upstream := config.UpstreamConfig{BaseURL: gateway.DefaultBaseURL}
	logCfg := &config.LogConfig{Level: opts.logLevel, Format: "text"}

	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return upstream, nil, fmt.Errorf("failed to load config: %w", err)
		}
		upstream = cfg.Upstream
		logCfg = &cfg.Log
	}
	if opts.baseURL != "" {
		upstream.BaseURL = opts.baseURL
	}
	if upstream.BaseURL == "" {
		upstream.BaseURL = gateway.DefaultBaseURL
	}
	return upstream, logCfg, nil
}

// printPage writes the visible rows as a tab-aligned table and the
// pagination line below it.
func printPage(ctx context.Context, out io.Writer, res listing.Resource, s listing.State) error {
	page, err := pkg.Paginate(ctx, res.Visible(s), s.Page, s.PageSize, s.Total)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	labels := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		labels[i] = listing.Label(col)
	}
	fmt.Fprintln(tw, strings.Join(labels, "\t"))

	for _, r := range page.Items {
		cells := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			v, _ := r.Lookup(col)
			cells[i] = flatten(domain.FormatValue(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No records")
	}
	_, err = fmt.Fprintf(out, "Page %d of %d · %d records%s\n", page.CurrentPage, page.TotalPages, page.TotalItems, pageWindow(page.Window))
	return err
}

func pageWindow(window []pkg.PageItem) string {
	if len(window) == 0 {
		return ""
	}
	parts := make([]string, len(window))
	for i, it := range window {
		switch {
		case it.Ellipsis:
			parts[i] = "…"
		case it.Current:
			parts[i] = fmt.Sprintf("[%d]", it.Number)
		default:
			parts[i] = fmt.Sprint(it.Number)
		}
	}
	return " · " + strings.Join(parts, " ")
}

// flatten keeps a cell on one table line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
