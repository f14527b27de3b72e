// Command rcaquery runs a root-cause search against a server and prints the
// resulting entity graph.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"github.com/thirdeye/go-rootcause/dispatch/httpdispatch"
	"github.com/thirdeye/go-rootcause/ecache"
	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
	"github.com/thirdeye/go-rootcause/workspace"
)

var log = logging.Logger("rcaquery")

var (
	configPath    string
	serverURL     string
	searchURNs    []string
	selectedURNs  []string
	anomalyStart  string
	anomalyEnd    string
	analysisStart string
	analysisEnd   string
	compareMode   string
	minScore      float64
	logLevel      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rcaquery",
		Short: "Run a root-cause search and print the related entities",
		Long: `rcaquery sends the related events, dimensions and metrics searches for an
anomaly window to a root-cause server, merges the results into one entity
graph, and prints it ordered by score.

Times are epoch milliseconds or RFC3339. The analysis window defaults to one
week either side of the anomaly window.`,
		SilenceUsage: true,
		RunE:         runQuery,
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	flags.StringVar(&serverURL, "server", "", "root-cause server URL, overrides config")
	flags.StringSliceVarP(&searchURNs, "urn", "u", nil, "URN to search from, may be repeated")
	flags.StringSliceVarP(&selectedURNs, "select", "s", nil, "URN to keep selected, may be repeated")
	flags.StringVar(&anomalyStart, "anomaly-start", "", "anomaly window start")
	flags.StringVar(&anomalyEnd, "anomaly-end", "", "anomaly window end")
	flags.StringVar(&analysisStart, "analysis-start", "", "analysis window start")
	flags.StringVar(&analysisEnd, "analysis-end", "", "analysis window end")
	flags.StringVar(&compareMode, "compare", string(model.WoW), "baseline compare mode: WoW, Wo2W, Wo3W or Wo4W")
	flags.Float64Var(&minScore, "min-score", 0, "hide entities scoring below this, stale entities are always shown")
	flags.StringVar(&logLevel, "log-level", "error", "log level")
	_ = cmd.MarkFlagRequired("anomaly-start")
	_ = cmd.MarkFlagRequired("anomaly-end")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := logging.SetLogLevel("*", logLevel); err != nil {
		return err
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.Server = serverURL
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	sc, err := searchContext()
	if err != nil {
		return err
	}

	opts := []httpdispatch.Option{
		httpdispatch.WithTimeout(cfg.HTTPTimeout),
		httpdispatch.WithRetry(cfg.Retry.Max, cfg.Retry.WaitMin, cfg.Retry.WaitMax),
	}
	for key, value := range cfg.Headers {
		opts = append(opts, httpdispatch.WithHeader(key, header(value)))
	}
	d, err := httpdispatch.New(cfg.Server, opts...)
	if err != nil {
		return err
	}

	cache, err := ecache.New(d, ecache.WithQueryTimeout(cfg.QueryTimeout))
	if err != nil {
		return err
	}
	defer cache.Close()

	ws, err := workspace.New(cache)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Wait)
	defer cancel()

	final, err := search(ctx, cache, ws, sc, urn.NewSet(selectedURNs...))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printEntities(out, final.Entities, urn.NewSet(selectedURNs...), minScore)
	printFailures(out, final.Failed)
	if len(final.Failed) != 0 {
		return fmt.Errorf("%d of %d searches failed", len(final.Failed), len(model.SearchFrameworks()))
	}
	return nil
}

// search requests the context and waits until no framework is pending.
func search(ctx context.Context, cache *ecache.Cache, ws *workspace.Workspace, sc model.SearchContext, selected urn.Set) (ecache.Update, error) {
	updates, cancel := cache.OnUpdate()
	defer func() {
		cancel()
		for range updates {
		}
	}()

	if err := ws.Update(sc, selected); err != nil {
		return ecache.Update{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return ecache.Update{}, fmt.Errorf("search did not finish: %w", ctx.Err())
		case u, ok := <-updates:
			if !ok {
				return ecache.Update{}, ecache.ErrClosed
			}
			if len(u.Pending) == 0 && u.Context.Equal(sc) {
				log.Infow("Search finished", "entities", len(u.Entities), "failed", len(u.Failed))
				return u, nil
			}
		}
	}
}

func searchContext() (model.SearchContext, error) {
	var sc model.SearchContext
	var err error

	if len(searchURNs) == 0 {
		return sc, errors.New("at least one --urn is required")
	}
	sc.URNs = urn.NewSet(searchURNs...)
	sc.CompareMode = model.CompareMode(compareMode)

	if sc.AnomalyRange.Start, err = parseTime(anomalyStart); err != nil {
		return sc, fmt.Errorf("anomaly-start: %w", err)
	}
	if sc.AnomalyRange.End, err = parseTime(anomalyEnd); err != nil {
		return sc, fmt.Errorf("anomaly-end: %w", err)
	}

	week := int64(7 * 24 * time.Hour / time.Millisecond)
	sc.AnalysisRange = model.Range{Start: sc.AnomalyRange.Start - week, End: sc.AnomalyRange.End + week}
	if analysisStart != "" {
		if sc.AnalysisRange.Start, err = parseTime(analysisStart); err != nil {
			return sc, fmt.Errorf("analysis-start: %w", err)
		}
	}
	if analysisEnd != "" {
		if sc.AnalysisRange.End, err = parseTime(analysisEnd); err != nil {
			return sc, fmt.Errorf("analysis-end: %w", err)
		}
	}
	return sc, sc.Validate()
}

// parseTime parses epoch milliseconds or an RFC3339 time.
func parseTime(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("not epoch milliseconds or RFC3339: %q", s)
	}
	return t.UnixMilli(), nil
}
