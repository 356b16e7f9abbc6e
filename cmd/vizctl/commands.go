package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/engines"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/storage"
	"github.com/websapdev/ai-visibility/internal/store"
	"github.com/websapdev/ai-visibility/internal/visibility"
)

func openStore() (*store.SQLStore, error) {
	repo, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return repo, nil
}

func openArchive() (storage.StorageInterface, error) {
	archive, err := storage.New(cfg)
	if err != nil {
		return nil, err
	}
	if archive == nil {
		return nil, fmt.Errorf("no archive configured (set ARCHIVE_BACKEND to file or azure)")
	}
	return archive, nil
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		printSuccess("Schema is up to date (%s)", cfg.DatabaseDriver)
		return nil
	},
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo brand, competitors, prompts and engine registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadEngines(cfg.EnginesFile)
		if err != nil {
			return err
		}

		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		brand, err := seedDemo(cmd.Context(), repo, registry)
		if err != nil {
			return err
		}

		printSuccess("Seeded brand %s (%s) with %d engines", brand.Name, brand.ID, len(registry))
		fmt.Fprintln(cmd.OutOrStdout(), brand.ID)
		return nil
	},
}

// seedDemo registers the engines and creates the demo brand. Engines are
// upserted, so seeding twice keeps one registry.
func seedDemo(ctx context.Context, repo store.Repository, registry []config.EngineSpec) (*models.Brand, error) {
	for _, e := range registry {
		if err := repo.UpsertEngine(ctx, &models.AiEngine{Slug: e.Slug, DisplayName: e.DisplayName}); err != nil {
			return nil, fmt.Errorf("failed to register engine %s: %w", e.Slug, err)
		}
	}

	brand := &models.Brand{Name: "Acme Corp", PrimaryDomain: "acme.com"}
	if err := repo.CreateBrand(ctx, brand); err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}

	competitors := []models.Competitor{
		{BrandID: brand.ID, Name: "Globex", PrimaryDomain: "globex.com"},
		{BrandID: brand.ID, Name: "Soylent", PrimaryDomain: "soylent.com"},
	}
	for i := range competitors {
		if err := repo.CreateCompetitor(ctx, &competitors[i]); err != nil {
			return nil, fmt.Errorf("failed to create competitor %s: %w", competitors[i].Name, err)
		}
	}

	prompts := []string{
		"Best enterprise software solutions 2025",
		"Acme Corp vs Globex reviews",
		"Top rated SaaS platforms for logistics",
	}
	for _, text := range prompts {
		if err := repo.CreatePrompt(ctx, &models.TrackedPrompt{BrandID: brand.ID, Text: text, IsActive: true}); err != nil {
			return nil, fmt.Errorf("failed to create prompt: %w", err)
		}
	}

	return brand, nil
}

// --- poll ---

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll every engine for one brand and update today's snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		brandID, _ := cmd.Flags().GetString("brand")
		if brandID == "" {
			return fmt.Errorf("--brand is required")
		}

		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		archive, err := storage.New(cfg)
		if err != nil {
			return err
		}

		fetcher, err := engines.NewFetcher(cfg)
		if err != nil {
			return err
		}

		aggregator := visibility.NewAggregator(repo, cfg.Location())
		poller := visibility.NewPoller(cfg, repo, fetcher, aggregator, archive)

		result, err := poller.RunPoll(cmd.Context(), brandID)
		if err != nil {
			return err
		}

		printSuccess("Stored %d new answers using the %s fetcher (%d failed fetches) in %v",
			result.NewAnswers, fetcher.GetName(), result.FailedFetches, result.Duration)
		return nil
	},
}

// --- overview ---

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Print a brand's visibility overview",
	RunE: func(cmd *cobra.Command, args []string) error {
		brandID, _ := cmd.Flags().GetString("brand")
		asJSON, _ := cmd.Flags().GetBool("json")
		if brandID == "" {
			return fmt.Errorf("--brand is required")
		}

		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		brand, err := repo.GetBrand(cmd.Context(), brandID)
		if err != nil {
			return err
		}

		reporter := visibility.NewReporter(repo, cfg.Location(), cfg.OverviewWindowDays)
		overview, err := reporter.GetOverview(cmd.Context(), brandID)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(overview)
		}
		renderOverview(cmd.OutOrStdout(), brand.Name, overview)
		return nil
	},
}

// --- archive ---

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived poll documents",
}

var archiveListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List archived polls",
	RunE: func(cmd *cobra.Command, args []string) error {
		brandID, _ := cmd.Flags().GetString("brand")

		archive, err := openArchive()
		if err != nil {
			return err
		}

		names, err := archive.List(cmd.Context(), archivePrefix(brandID))
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print one archived poll",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive()
		if err != nil {
			return err
		}

		data, err := archive.Retrieve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	},
}

var archivePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest archived polls of a brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		brandID, _ := cmd.Flags().GetString("brand")
		keep, _ := cmd.Flags().GetInt("keep")
		if brandID == "" {
			return fmt.Errorf("--brand is required")
		}

		archive, err := openArchive()
		if err != nil {
			return err
		}

		deleted, err := pruneArchive(cmd.Context(), archive, brandID, keep)
		if err != nil {
			return err
		}
		printSuccess("Deleted %d archived polls", len(deleted))
		return nil
	},
}

func archivePrefix(brandID string) string {
	if brandID == "" {
		return "polls/"
	}
	return "polls/" + brandID + "/"
}

// pruneArchive keeps the newest keep documents of the brand. Names carry
// their timestamp, so lexical order is chronological.
func pruneArchive(ctx context.Context, archive storage.StorageInterface, brandID string, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("--keep must not be negative")
	}

	names, err := archive.List(ctx, archivePrefix(brandID))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	if len(names) <= keep {
		return nil, nil
	}

	stale := names[:len(names)-keep]
	for _, name := range stale {
		if err := archive.Delete(ctx, name); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

func init() {
	pollCmd.Flags().String("brand", "", "brand id to poll")
	overviewCmd.Flags().String("brand", "", "brand id to report on")
	overviewCmd.Flags().Bool("json", false, "print the overview as JSON")

	archiveListCmd.Flags().String("brand", "", "only list polls of this brand")
	archivePruneCmd.Flags().String("brand", "", "brand id whose polls are pruned")
	archivePruneCmd.Flags().Int("keep", 10, "number of newest polls to keep")
	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd, archivePruneCmd)
}
