package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/sago-labs/sago/db"
	"github.com/sago-labs/sago/internal/agent"
	"github.com/sago-labs/sago/internal/config"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage agent system prompts",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all agents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAgentStore(cmd.Context(), func(ctx context.Context, store *agent.Store) error {
			agents, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				fmt.Println("No agents configured.")
				return nil
			}
			for _, a := range agents {
				fmt.Printf("%s\t%d chars\n", a.Name, len(a.SystemPrompt))
			}
			return nil
		})
	},
}

var agentsSetCmd = &cobra.Command{
	Use:   "set <name> <system-prompt>",
	Short: "Create or update an agent's system prompt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAgentStore(cmd.Context(), func(ctx context.Context, store *agent.Store) error {
			if err := store.Upsert(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Agent %q saved.\n", args[0])
			return nil
		})
	},
}

var agentsSeedCmd = &cobra.Command{
	Use:   "seed <file.json>",
	Short: "Load agents from a JSON file ({\"name\": \"system prompt\", ...})",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading seed file: %w", err)
		}
		var prompts map[string]string
		if err := json.Unmarshal(data, &prompts); err != nil {
			return fmt.Errorf("parsing seed file: %w", err)
		}

		return withAgentStore(cmd.Context(), func(ctx context.Context, store *agent.Store) error {
			for name, prompt := range prompts {
				if err := store.Upsert(ctx, name, prompt); err != nil {
					return fmt.Errorf("seeding agent %q: %w", name, err)
				}
			}
			fmt.Printf("Seeded %d agents.\n", len(prompts))
			return nil
		})
	},
}

var agentsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete all agents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAgentStore(cmd.Context(), func(ctx context.Context, store *agent.Store) error {
			n, err := store.DeleteAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d agents.\n", n)
			return nil
		})
	},
}

func init() {
	agentsCmd.AddCommand(agentsListCmd, agentsSetCmd, agentsSeedCmd, agentsDeleteCmd)
	rootCmd.AddCommand(agentsCmd)
}

// withAgentStore connects to the database, runs fn against an agent
// store, and releases the pool.
func withAgentStore(ctx context.Context, fn func(context.Context, *agent.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, agent.NewStore(pool, newLogger(cfg)))
}
