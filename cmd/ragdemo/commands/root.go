// Package commands defines all Cobra CLI commands for the ragdemo binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/TURahim/RAGdemo/internal/audit"
	"github.com/TURahim/RAGdemo/internal/config"
	"github.com/TURahim/RAGdemo/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragdemo",
		Short: "RAGdemo — permission-aware document Q&A over your internal docs",
		Long: `RAGdemo is a retrieval-augmented assistant for internal documentation.

It answers natural language questions grounded in your indexed documents,
cites its sources, and respects per-user document permissions on every
query. Conversation memory is kept per session in Redis or SQLite.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.ragdemo/config.yaml).
See 'ragdemo --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragdemo/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIndexCmd(),
		NewVersionCmd(),
	)

	return root
}
