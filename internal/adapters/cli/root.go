package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
)

// Services are built lazily so that --help and flag errors never touch
// the vector store or the model provider.
type Services struct {
	Ingestor   ports.DocumentIngestor
	Query      ports.QueryService
	Translator ports.Translator
	Queue      ports.IngestQueue
}

type Loader func(ctx context.Context) (*Services, func(), error)

type ServeFunc func(ctx context.Context) error

var heading = color.New(color.FgCyan, color.Bold)

type rootOptions struct {
	add       []string
	query     string
	translate bool
	publish   bool
	topK      int
}

func NewRootCommand(load Loader, serve ServeFunc) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Sri Lankan electoral documents RAG system",
		Long: `Answers questions about Sri Lankan electoral law and apportionment
from an ingested corpus of PDF and text documents. Retrieval combines
semantic (vector) search with keyword (BM25) search.`,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				if len(opts.add) == 0 {
					return fmt.Errorf("unexpected arguments %v (use --add to ingest files)", args)
				}
				opts.add = append(opts.add, args...)
			}
			if len(opts.add) == 0 && opts.query == "" {
				return cmd.Help()
			}
			if opts.publish && len(opts.add) == 0 {
				return errors.New("--publish requires --add")
			}
			return runRoot(cmd, load, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.add, "add", nil, "add documents to the vector store (repeatable, extra arguments are added too)")
	cmd.Flags().StringVar(&opts.query, "query", "", "query the RAG system")
	cmd.Flags().BoolVar(&opts.translate, "translate", false, "translate the answer to Sinhala")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "queue --add paths for a running server instead of ingesting locally")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "number of context chunks (default from DEFAULT_TOP_K)")

	cmd.AddCommand(newServeCommand(serve))
	cmd.AddCommand(newTranslateCommand(load))
	return cmd
}

func runRoot(cmd *cobra.Command, load Loader, opts *rootOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if load == nil {
		return errors.New("services not configured")
	}
	services, cleanup, err := load(ctx)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	out := cmd.OutOrStdout()

	if len(opts.add) > 0 {
		if opts.publish {
			if services.Queue == nil {
				return errors.New("ingest queue not configured (set NATS_URL)")
			}
			if err := services.Queue.PublishIngestRequest(ctx, opts.add); err != nil {
				return fmt.Errorf("publish ingest request: %w", err)
			}
			fmt.Fprintf(out, "Queued %d paths for ingestion\n", len(opts.add))
		} else {
			report, err := services.Ingestor.AddPaths(ctx, opts.add)
			if err != nil {
				return fmt.Errorf("add documents: %w", err)
			}
			printIngestReport(out, report)
		}
	}

	if opts.query != "" {
		answer, err := services.Query.Answer(ctx, opts.query, domain.QueryOptions{
			TopK:      opts.topK,
			Translate: opts.translate,
		})
		if err != nil {
			return fmt.Errorf("answer question: %w", err)
		}
		printAnswer(out, answer, opts.translate)
	}
	return nil
}

func printIngestReport(out io.Writer, report *domain.IngestReport) {
	for _, p := range report.Paths {
		switch p.Status {
		case domain.PathMissing:
			fmt.Fprintf(out, "File not found: %s\n", p.Path)
		case domain.PathFailed:
			fmt.Fprintf(out, "Processing %s...\n", p.Path)
			fmt.Fprintf(out, "Failed to process %s: %s\n", p.Path, p.Error)
		default:
			fmt.Fprintf(out, "Processing %s...\n", p.Path)
			fmt.Fprintf(out, "Added %d chunks from %s\n", p.Chunks, p.Path)
		}
	}
	if report.TotalChunks > 0 {
		fmt.Fprintf(out, "Added %d total chunks to vector store\n", report.TotalChunks)
	}
}

func printAnswer(out io.Writer, answer *domain.Answer, translated bool) {
	fmt.Fprintln(out)
	heading.Fprintln(out, "Question:")
	fmt.Fprintln(out, answer.Question)

	fmt.Fprintln(out)
	heading.Fprintln(out, "Answer:")
	fmt.Fprintln(out, answer.Answer)

	if translated {
		fmt.Fprintln(out)
		heading.Fprintln(out, "Sinhala Translation:")
		fmt.Fprintln(out, answer.Translation)
	}

	fmt.Fprintln(out)
	heading.Fprintln(out, "Sources:")
	for _, src := range answer.Sources {
		fmt.Fprintf(out, "- %s\n", src)
	}
}
