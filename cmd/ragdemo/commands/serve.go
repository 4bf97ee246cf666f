package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/TURahim/RAGdemo/internal/assistant"
	"github.com/TURahim/RAGdemo/internal/embedder"
	"github.com/TURahim/RAGdemo/internal/indexer"
	"github.com/TURahim/RAGdemo/internal/logging"
	"github.com/TURahim/RAGdemo/internal/provider"
	"github.com/TURahim/RAGdemo/internal/server"
	"github.com/TURahim/RAGdemo/internal/tracing"
)

// NewServeCmd constructs the `ragdemo serve` command, which starts the HTTP
// API for chat, indexing, and session management.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RAGdemo HTTP API server",
		Long: `Start the RAGdemo HTTP server on localhost.

The server exposes a REST API for permission-scoped document Q&A:
POST /api/chat answers questions grounded in the indexed documents,
POST /api/index (re-)indexes a document's pre-split chunks, and
POST /api/clear-session resets a conversation.

Examples:
  ragdemo serve
  ragdemo serve --port 9090
  MODEL_PROVIDER=azure MEMORY_BACKEND=sqlite ragdemo serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Flags win over env, env wins over the built-in defaults. The env
			// values may have been populated from the YAML config file.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("SERVER_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("SERVER_PORT", port)
			}

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised")

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			store, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			mem, memPinger, err := buildMemory(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = mem.Close() }()

			qa, err := assistant.New(&assistant.Config{
				Embedder:       emb,
				VectorStore:    store,
				ChatModel:      chatModel,
				Memory:         mem,
				TopK:           getEnvInt("RETRIEVAL_TOP_K", 0),
				ScoreThreshold: getEnvFloat32("RETRIEVAL_SCORE_THRESHOLD", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise assistant: %w", err)
			}

			pipeline, err := indexer.NewPipeline(emb, store, nil)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise indexer: %w", err)
			}

			pingers := []server.Pinger{server.NewQdrantPinger(store.Client())}
			if memPinger != nil {
				pingers = append(pingers, memPinger)
			}

			srv, err := server.New(qa, pipeline, store, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("RAGDEMO_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
