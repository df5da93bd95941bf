package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-insight/internal/batch"
	apperrors "github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/query"
	"github.com/ricesearch/rice-insight/internal/search"
	"github.com/ricesearch/rice-insight/internal/search/result"
)

// addContextFlags registers the flags describing the caller and workspace.
func addContextFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("language", "l", "", "programming language of interest")
	cmd.Flags().String("agent", "", "calling agent type (code_review, debugging, ...)")
	cmd.Flags().String("project", "", "workspace project name")
	cmd.Flags().StringSlice("framework", nil, "workspace frameworks")
	cmd.Flags().StringSliceP("snapshot", "s", nil, "snapshot IDs to search")
}

func queryContext(cmd *cobra.Command) *query.Context {
	language, _ := cmd.Flags().GetString("language")
	agent, _ := cmd.Flags().GetString("agent")
	project, _ := cmd.Flags().GetString("project")
	frameworks, _ := cmd.Flags().GetStringSlice("framework")
	snapshots, _ := cmd.Flags().GetStringSlice("snapshot")

	qctx := &query.Context{Language: language, AgentType: agent}
	if project != "" || len(frameworks) > 0 || len(snapshots) > 0 {
		qctx.Workspace = &query.WorkspaceContext{
			ProjectName: project,
			Frameworks:  frameworks,
			SnapshotIDs: snapshots,
		}
		if language != "" {
			qctx.Workspace.Languages = []string{language}
		}
	}
	return qctx
}

func queryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <query>",
		Short: "Classify, enhance and plan a query without searching",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			pq, err := query.NewService(log).ProcessQuery(cmd.Context(), queryText(args), queryContext(cmd))
			if err != nil {
				return err
			}
			return newPrinter(cmd).processedQuery(pq)
		},
	}
	addContextFlags(cmd)
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query>",
		Short: "Report problems with a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := query.ValidateQuery(queryText(args), queryContext(cmd))
			if err := newPrinter(cmd).validation(res); err != nil {
				return err
			}
			if !res.IsValid {
				return apperrors.ValidationError("query is not valid")
			}
			return nil
		},
	}
	addContextFlags(cmd)
	return cmd
}

func decomposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decompose <query>",
		Short: "Split a complex query into sub-queries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs := query.DecomposeComplexQuery(queryText(args), queryContext(cmd))
			return newPrinter(cmd).subQueries(subs)
		},
	}
	addContextFlags(cmd)
	return cmd
}

func addSearchFlags(cmd *cobra.Command) {
	addContextFlags(cmd)
	cmd.Flags().IntP("limit", "n", 0, "maximum number of results")
	cmd.Flags().Int("per-file", 0, "maximum results per file")
	cmd.Flags().String("strategy", "", "ranking strategy (relevance, quality, recency, usage, balanced)")
	cmd.Flags().Float64("threshold", 0, "similarity threshold (0-1)")
	cmd.Flags().Float64("min-quality", 0, "minimum overall quality score (0-1)")
	cmd.Flags().Int("context", 0, "lines of context around each result")
	cmd.Flags().Bool("no-diversify", false, "disable result diversification")
	cmd.Flags().Bool("no-explain", false, "only report confidence factors")
	cmd.Flags().Bool("metrics", false, "include quality metrics in explanations")
	cmd.Flags().Bool("relationships", false, "include dependencies and usage in explanations")
}

// searchOptions starts from the service defaults and applies changed flags.
func searchOptions(cmd *cobra.Command, svc *search.Service) *result.Options {
	opts := svc.DefaultOptions()
	flags := cmd.Flags()

	if flags.Changed("limit") {
		opts.Limit, _ = flags.GetInt("limit")
	}
	if flags.Changed("per-file") {
		opts.MaxResultsPerFile, _ = flags.GetInt("per-file")
	}
	if flags.Changed("strategy") {
		opts.RankingStrategy, _ = flags.GetString("strategy")
	}
	if flags.Changed("threshold") {
		opts.SimilarityThreshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("min-quality") {
		opts.FilterCriteria.QualityThreshold, _ = flags.GetFloat64("min-quality")
	}
	if flags.Changed("context") {
		opts.ContextRadius, _ = flags.GetInt("context")
	}
	if noDiversify, _ := flags.GetBool("no-diversify"); noDiversify {
		opts.EnableDiversification = result.Bool(false)
	}
	if noExplain, _ := flags.GetBool("no-explain"); noExplain {
		opts.IncludeExplanations = false
	}
	opts.IncludeQualityMetrics, _ = flags.GetBool("metrics")
	opts.IncludeRelationships, _ = flags.GetBool("relationships")

	return &opts
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed code",
		Long: `Search indexed code with intent-aware ranking and explanations.

With --dir the directory is indexed first, which makes the command usable
with the in-memory content store.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			qctx := queryContext(cmd)
			if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
				snapshotID, err := indexBeforeSearch(ctx, a, dir, qctx)
				if err != nil {
					return err
				}
				a.log.Debug("Indexed directory before search", "dir", dir, "snapshot", snapshotID)
			}

			svc, err := a.searchService()
			if err != nil {
				return err
			}

			req := search.Request{Query: queryText(args), Context: qctx, Options: searchOptions(cmd, svc)}
			p := newPrinter(cmd)

			if decompose, _ := cmd.Flags().GetBool("decompose"); decompose {
				resp, err := svc.SearchDecomposed(ctx, req)
				if err != nil {
					return err
				}
				return p.decomposed(resp)
			}

			resp, err := svc.Search(ctx, req)
			if err != nil {
				return err
			}
			group, _ := cmd.Flags().GetBool("group")
			return p.searchResponse(resp, group)
		},
	}
	addSearchFlags(cmd)
	cmd.Flags().Bool("decompose", false, "search each sub-query of a complex query and fuse the results")
	cmd.Flags().Bool("group", false, "group results by file")
	cmd.Flags().String("dir", "", "index this directory before searching")
	return cmd
}

// indexBeforeSearch indexes dir into the first requested snapshot, or into
// "local", and scopes the search to it.
func indexBeforeSearch(ctx context.Context, a *app, dir string, qctx *query.Context) (string, error) {
	ix, err := a.indexer()
	if err != nil {
		return "", err
	}

	snapshotID := "local"
	if qctx.Workspace != nil && len(qctx.Workspace.SnapshotIDs) > 0 {
		snapshotID = qctx.Workspace.SnapshotIDs[0]
	}
	if _, err := ix.IndexDir(ctx, snapshotID, dir); err != nil {
		return "", err
	}

	if qctx.Workspace == nil {
		qctx.Workspace = &query.WorkspaceContext{}
	}
	if len(qctx.Workspace.SnapshotIDs) == 0 {
		qctx.Workspace.SnapshotIDs = []string{snapshotID}
	}
	return snapshotID, nil
}

// batchEntry is the outcome of one query in a batch run.
type batchEntry struct {
	Query    string           `json:"query"`
	Response *search.Response `json:"response,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
	Attempts int              `json:"attempts"`
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run many queries concurrently",
		Long: `Run one search per line of the input file ("-" reads stdin).
Blank lines and lines starting with # are ignored. Each query gets its own
timeout and is retried on transient failures.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := readQueries(cmd, args[0])
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				return apperrors.ValidationError("no queries in input")
			}

			ctx := cmd.Context()
			a, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.searchService()
			if err != nil {
				return err
			}

			bc := batchConfig(a.cfg.Batch)
			if cmd.Flags().Changed("concurrency") {
				bc.Concurrency, _ = cmd.Flags().GetInt("concurrency")
			}

			qctx := queryContext(cmd)
			opts := searchOptions(cmd, svc)
			results := batch.Run(ctx, bc, a.log, queries, func(ctx context.Context, q string) (*search.Response, error) {
				return svc.Search(ctx, search.Request{Query: q, Context: qctx, Options: opts})
			})

			entries := make([]batchEntry, len(results))
			failed := 0
			for i, r := range results {
				entries[i] = batchEntry{Query: queries[i], Response: r.Value, Attempts: r.Attempts}
				if r.Err != nil {
					failed++
					entries[i].Response = nil
					entries[i].Error = r.Err.Error()
					entries[i].Code = apperrors.CodeOf(r.Err)
				}
			}

			p := newPrinter(cmd)
			if err := p.batch(entries); err != nil {
				return err
			}
			if stats, _ := cmd.Flags().GetBool("stats"); stats {
				a.settle()
				if err := p.metrics(a.metrics.Summary()); err != nil {
					return err
				}
			}
			if failed == len(entries) {
				return fmt.Errorf("all %d queries failed", failed)
			}
			return nil
		},
	}
	addSearchFlags(cmd)
	cmd.Flags().Int("concurrency", 0, "number of queries run at once")
	cmd.Flags().Bool("stats", false, "print aggregate query and search metrics")
	return cmd
}

func readQueries(cmd *cobra.Command, path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.NotFoundError("query file").WithDetail("path", path)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return parseQueries(r)
}

// parseQueries returns the non-blank, non-comment lines of r.
func parseQueries(r io.Reader) ([]string, error) {
	var queries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.InternalError("failed to read queries", err)
	}
	return queries, nil
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Index a directory into a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ix, err := a.indexer()
			if err != nil {
				return err
			}

			snapshotID, _ := cmd.Flags().GetString("snapshot")
			res, err := ix.IndexDir(ctx, snapshotID, args[0])
			if err != nil {
				return err
			}
			return newPrinter(cmd).indexResult(res)
		},
	}
	cmd.Flags().StringP("snapshot", "s", "local", "snapshot ID to index into")
	return cmd
}

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage indexed snapshots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List indexed snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snaps, err := a.content.ListSnapshots(ctx)
			if err != nil {
				return err
			}
			return newPrinter(cmd).snapshots(snaps)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <snapshot>",
		Short: "Delete a snapshot's vectors and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.qdrant.DeleteSnapshot(ctx, args[0]); err != nil {
				return err
			}
			if err := a.content.DeleteSnapshot(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", args[0])
			return nil
		},
	})

	return cmd
}
