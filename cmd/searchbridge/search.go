package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchbridge/internal/bootstrap"
	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	searchuc "github.com/kailas-cloud/searchbridge/internal/usecase/search"
)

type searchFlags struct {
	scopes  []string
	page    int
	perPage int
	lazy    bool
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	flags := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search <type> <query>",
		Short: "Search a record type and print the matching records",
		Long: `Search runs the record type's rules in order and prints the records of the
first rule that matches, as JSON.

Examples:
  searchbridge search posts "golang"
  searchbridge search posts "golang" --scope published --scope lang=en
  searchbridge search posts "golang" --page 2 --per-page 10
  searchbridge search posts "golang" --lazy     # one JSON line per record`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.lazy && flags.page > 0 {
				return fmt.Errorf("--lazy and --page are mutually exclusive")
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				c, err := buildCriteria(app.Search, args[0], args[1], flags.scopes)
				if err != nil {
					return err
				}
				return runSearch(ctx, cmd.OutOrStdout(), app.Search, c, flags)
			})
		},
	}
	cmd.Flags().StringArrayVar(&flags.scopes, "scope", nil, "apply a scope, as name or name=arg (repeatable)")
	cmd.Flags().IntVar(&flags.page, "page", 0, "page number, 1-based")
	cmd.Flags().IntVar(&flags.perPage, "per-page", 20, "records per page")
	cmd.Flags().BoolVar(&flags.lazy, "lazy", false, "stream records from the store one by one")
	return cmd
}

func newCountCmd(opts *globalOptions) *cobra.Command {
	var scopes []string
	cmd := &cobra.Command{
		Use:   "count <type> [query]",
		Short: "Count the matches of the first rule that matches anything",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, app *bootstrap.App) error {
				c, err := buildCriteria(app.Search, args[0], query, scopes)
				if err != nil {
					return err
				}
				n, err := app.Search.Count(ctx, c)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&scopes, "scope", nil, "apply a scope, as name or name=arg (repeatable)")
	return cmd
}

// withApp loads the config, wires the application and runs fn.
func withApp(ctx context.Context, opts *globalOptions, fn func(context.Context, *bootstrap.App) error) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()
	return fn(ctx, app)
}

func buildCriteria(svc *searchuc.Service, recordType, query string, scopes []string) (*criteria.Criteria, error) {
	if _, err := svc.Type(recordType); err != nil {
		return nil, err
	}
	b := svc.Query(recordType).Query(query)
	for _, s := range scopes {
		name, args := parseScope(s)
		b.Scope(name, args...)
	}
	return b.Build()
}

// parseScope splits "name=arg" into the scope name and its argument.
func parseScope(s string) (string, []any) {
	name, arg, ok := strings.Cut(s, "=")
	if !ok {
		return name, nil
	}
	return name, []any{arg}
}

type searchOutput struct {
	Total    int64        `json:"total"`
	Page     int          `json:"page,omitempty"`
	PerPage  int          `json:"per_page,omitempty"`
	LastPage int          `json:"last_page,omitempty"`
	Items    []outputItem `json:"items"`
}

type outputItem struct {
	Key       string              `json:"key"`
	Score     float64             `json:"score"`
	Fields    map[string]any      `json:"fields"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

func runSearch(ctx context.Context, w io.Writer, svc *searchuc.Service, c *criteria.Criteria, flags *searchFlags) error {
	enc := json.NewEncoder(w)

	if flags.lazy {
		cur, err := svc.Cursor(ctx, c)
		if err != nil {
			return err
		}
		defer cur.Close()
		for cur.Next(ctx) {
			if err := enc.Encode(toOutputItem(cur.Record())); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
		return cur.Err()
	}

	var out searchOutput
	if flags.page > 0 {
		p, err := svc.Paginate(ctx, c, flags.perPage, flags.page)
		if err != nil {
			return err
		}
		out = newSearchOutput(&p.Result)
		out.Page, out.PerPage, out.LastPage = p.Page, p.PerPage, p.LastPage()
	} else {
		res, err := svc.Get(ctx, c)
		if err != nil {
			return err
		}
		out = newSearchOutput(res)
	}

	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func newSearchOutput(res *searchuc.Result) searchOutput {
	out := searchOutput{Total: res.Total, Items: make([]outputItem, len(res.Records))}
	for i, r := range res.Records {
		out.Items[i] = toOutputItem(r)
	}
	return out
}

func toOutputItem(r record.Mapped) outputItem {
	return outputItem{Key: r.Key, Score: r.Score, Fields: r.Fields, Highlight: r.Highlight}
}
