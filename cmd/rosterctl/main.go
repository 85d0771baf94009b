// Command rosterctl is the Rosterdex operations CLI.
//
// Usage:
//
//	rosterctl catalog generations
//	rosterctl catalog species pikachu
//	rosterctl catalog filter --gen 3 --type1 water --text mud
//	rosterctl roster list --owner ash
//	rosterctl roster save --owner ash --file team.json
//	rosterctl migrate up
//	rosterctl token issue --owner ash
//	rosterctl export --owner ash
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/rosterdex/internal/auth"
	"github.com/albapepper/rosterdex/internal/config"
	"github.com/albapepper/rosterdex/internal/db"
	"github.com/albapepper/rosterdex/internal/export"
	"github.com/albapepper/rosterdex/internal/filter"
	"github.com/albapepper/rosterdex/internal/logging"
	"github.com/albapepper/rosterdex/internal/provider/pokeapi"
	"github.com/albapepper/rosterdex/internal/repository/rosters"
	"github.com/albapepper/rosterdex/internal/roster"
)

var logger = logging.New(os.Stderr, "info", "text")

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rosterctl",
		Short:        "Rosterdex operations CLI",
		SilenceUsage: true,
	}

	root.AddCommand(catalogCmd())
	root.AddCommand(rosterCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(exportCmd())
	return root
}

// --------------------------------------------------------------------------
// catalog command
// --------------------------------------------------------------------------

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and filter the species catalog",
	}
	cmd.AddCommand(catalogGenerationsCmd())
	cmd.AddCommand(catalogSpeciesCmd())
	cmd.AddCommand(catalogFilterCmd())
	return cmd
}

func catalogGenerationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generations",
		Short: "List every generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, func(ctx context.Context, cfg *config.Config, c *pokeapi.Client) error {
				gens, err := c.ListGenerations(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), gens)
			})
		},
	}
}

func catalogSpeciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "species <name>",
		Short: "Show the full record of one species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, func(ctx context.Context, cfg *config.Config, c *pokeapi.Client) error {
				detail, err := c.GetSpeciesDetail(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), detail)
			})
		},
	}
}

func catalogFilterCmd() *cobra.Command {
	var (
		gen                   int
		type1, type2, ability string
		text                  string
		concurrency           int
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the species visible under a set of facets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, func(ctx context.Context, cfg *config.Config, c *pokeapi.Client) error {
				if concurrency < 1 {
					concurrency = cfg.CatalogConcurrency
				}
				engine := filter.NewEngine(c, filter.Options{
					Concurrency:   concurrency,
					MaxGeneration: cfg.CatalogMaxGeneration,
					Logger:        logger,
				})
				defer engine.Close()

				if err := engine.SetGenerationCeiling(ctx, gen); err != nil {
					return err
				}
				facets := map[filter.Facet]string{
					filter.FacetType1:   type1,
					filter.FacetType2:   type2,
					filter.FacetAbility: ability,
				}
				for _, f := range filter.MembershipFacets {
					if facets[f] == "" {
						continue
					}
					if err := engine.LoadFacet(ctx, f, facets[f]); err != nil {
						return err
					}
				}
				engine.SetTextQuery(text)

				visible := engine.Visible()
				logger.Info("Filter applied",
					"universe", engine.UniverseSize(), "visible", len(visible))
				return printJSON(cmd.OutOrStdout(), visible)
			})
		},
	}
	cmd.Flags().IntVar(&gen, "gen", 1, "Generation ceiling (species from generations 1..N)")
	cmd.Flags().StringVar(&type1, "type1", "", "First type constraint")
	cmd.Flags().StringVar(&type2, "type2", "", "Second type constraint")
	cmd.Flags().StringVar(&ability, "ability", "", "Ability constraint")
	cmd.Flags().StringVar(&text, "text", "", "Case-insensitive name substring")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel generation fetches (default from config)")
	return cmd
}

// --------------------------------------------------------------------------
// roster command
// --------------------------------------------------------------------------

// rosterFile is the JSON accepted by roster save. A positive id updates that
// roster; otherwise a new one is created.
type rosterFile struct {
	ID    *int64       `json:"id"`
	Name  string       `json:"name"`
	Slots roster.Slots `json:"slots"`
}

func rosterCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage stored rosters of one owner",
	}
	cmd.PersistentFlags().StringVar(&owner, "owner", "", "Owner id (required)")
	_ = cmd.MarkPersistentFlagRequired("owner")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rosters, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDB(cmd, func(ctx context.Context, _ *config.Config, d *db.DB) error {
				list, err := rosters.FromDB(d).List(ctx, owner)
				if err != nil {
					return err
				}
				out := make([]roster.Summary, 0, len(list))
				for _, r := range list {
					out = append(out, r.Summary())
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runDB(cmd, func(ctx context.Context, _ *config.Config, d *db.DB) error {
				r, err := rosters.FromDB(d).Get(ctx, owner, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			})
		},
	})

	var file string
	save := &cobra.Command{
		Use:   "save",
		Short: "Create or update a roster from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var body rosterFile
			if err := json.Unmarshal(in, &body); err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}
			return runDB(cmd, func(ctx context.Context, _ *config.Config, d *db.DB) error {
				repo := rosters.FromDB(d)
				var (
					saved *roster.Roster
					err   error
				)
				if body.ID != nil && *body.ID > 0 {
					saved, err = repo.Update(ctx, owner, *body.ID, body.Name, body.Slots)
				} else {
					saved, err = repo.Create(ctx, owner, body.Name, body.Slots)
				}
				if err != nil {
					return err
				}
				logger.Info("Roster saved", "owner", owner, "id", *saved.ID, "name", saved.Name)
				return printJSON(cmd.OutOrStdout(), saved)
			})
		},
	}
	save.Flags().StringVar(&file, "file", "-", "Roster JSON file ('-' reads stdin)")
	cmd.AddCommand(save)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runDB(cmd, func(ctx context.Context, _ *config.Config, d *db.DB) error {
				r, err := rosters.FromDB(d).Delete(ctx, owner, id)
				if err != nil {
					return err
				}
				logger.Info("Roster deleted", "owner", owner, "id", id, "name", r.Name)
				return printJSON(cmd.OutOrStdout(), r.Summary())
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	steps := []struct {
		use, short string
		run        func(*db.DB, context.Context) error
	}{
		{"up", "Apply every pending migration", (*db.DB).Migrate},
		{"status", "Log the state of every migration", (*db.DB).MigrationStatus},
		{"down", "Revert the most recent migration", (*db.DB).Rollback},
	}
	for _, s := range steps {
		cmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, false, func(ctx context.Context, _ *config.Config, d *db.DB) error {
					start := time.Now()
					if err := s.run(d, ctx); err != nil {
						return err
					}
					logger.Info("Migrate finished", "step", s.use, "dialect", d.Dialect,
						"duration", time.Since(start).Round(time.Millisecond))
					return nil
				})
			},
		})
	}
	return cmd
}

// --------------------------------------------------------------------------
// token command
// --------------------------------------------------------------------------

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Owner bearer tokens",
	}

	var (
		owner string
		ttl   time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed owner token for development and scripting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.TokenTTL
			}
			token, err := auth.NewIssuer(cfg.SigningSecret(), cfg.JWTIssuer, ttl).IssueToken(owner)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	issue.Flags().StringVar(&owner, "owner", "", "Owner id (required)")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; 0 never expires (default from config)")
	_ = issue.MarkFlagRequired("owner")
	cmd.AddCommand(issue)
	return cmd
}

// --------------------------------------------------------------------------
// export command
// --------------------------------------------------------------------------

func exportCmd() *cobra.Command {
	var owners []string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rosters to the configured S3-compatible bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDB(cmd, func(ctx context.Context, cfg *config.Config, d *db.DB) error {
				ecfg := export.ConfigFrom(cfg)
				client, err := export.NewS3Client(ctx, ecfg)
				if err != nil {
					return err
				}
				exp := export.New(rosters.FromDB(d), client, ecfg, logger)

				failed := 0
				for _, owner := range owners {
					start := time.Now()
					result, err := exp.Export(ctx, owner)
					if err != nil {
						return err
					}
					logger.Info("Export finished",
						"duration", time.Since(start).Round(time.Millisecond),
						"summary", result.Summary())
					for _, e := range result.Errors {
						logger.Error("export error", "owner", owner, "error", e)
					}
					failed += len(result.Errors)
				}
				if failed > 0 {
					return fmt.Errorf("%d rosters failed to export", failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&owners, "owner", nil, "Owner id to export (repeatable)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runDB loads config, opens the database and applies pending migrations when
// auto_migrate is on.
func runDB(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, d *db.DB) error) error {
	return withDB(cmd, true, fn)
}

func withDB(cmd *cobra.Command, migrate bool, fn func(ctx context.Context, cfg *config.Config, d *db.DB) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer d.Close()

	if migrate && cfg.AutoMigrate {
		if err := d.Migrate(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, cfg, d)
}

func runCatalog(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, c *pokeapi.Client) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client := pokeapi.NewClient(pokeapi.Options{
		BaseURL:           cfg.CatalogBaseURL,
		RequestsPerMinute: cfg.CatalogRequestsPerMinute,
		Timeout:           cfg.CatalogTimeout,
		PageSize:          cfg.CatalogPageSize,
		Logger:            logger.With("component", "catalog"),
	})
	return fn(ctx, cfg, client)
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(file)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid roster id %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
