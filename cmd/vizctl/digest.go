package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/websapdev/ai-visibility/internal/engines"
	"github.com/websapdev/ai-visibility/internal/models"
	"github.com/websapdev/ai-visibility/internal/notifications"
	"github.com/websapdev/ai-visibility/internal/storage"
	"github.com/websapdev/ai-visibility/internal/visibility"
)

// terminalNotifier prints the digest instead of sending it
type terminalNotifier struct {
	out io.Writer
}

func (t *terminalNotifier) SendReport(ctx context.Context, report *models.Report) error {
	fmt.Fprintln(t.out, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(t.out, "📊 AI VISIBILITY DIGEST")
	fmt.Fprintln(t.out, strings.Repeat("=", 60))
	fmt.Fprintf(t.out, "📅 Period: %s\n", report.Period)
	fmt.Fprintf(t.out, "🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	for _, b := range report.Brands {
		fmt.Fprintf(t.out, "\n🏷️  %s (%s)\n", b.BrandName, b.BrandID)
		if b.Error != "" {
			fmt.Fprintf(t.out, "   ❌ %s\n", b.Error)
			continue
		}
		fmt.Fprintf(t.out, "   Share of Voice: %d%% | new answers: %d | answers in window: %d\n",
			b.Headline.OverallSov, b.NewAnswers, b.Headline.TotalAnswers)
		for _, e := range b.EngineSov {
			fmt.Fprintf(t.out, "   • %-15s %5.1f%%\n", e.Name+":", e.Sov)
		}
	}
	fmt.Fprintln(t.out, strings.Repeat("=", 60))
	return nil
}

// fanoutNotifier delivers to every notifier and returns the first error
type fanoutNotifier []notifications.NotificationInterface

func (f fanoutNotifier) SendReport(ctx context.Context, report *models.Report) error {
	var first error
	for _, n := range f {
		if err := n.SendReport(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Run the scheduled poll once and print the digest",
	Long: `Run the scheduled poll once for SCHEDULED_BRANDS (or every brand) and print
the digest. With --send the digest also goes to the configured Teams webhook
and email.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		send, _ := cmd.Flags().GetBool("send")

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

		notifier := fanoutNotifier{&terminalNotifier{out: cmd.OutOrStdout()}}
		if send {
			if !cfg.NotificationsEnabled() {
				return fmt.Errorf("--send needs TEAMS_WEBHOOK_URL or NOTIFICATION_EMAIL")
			}
			notifier = append(notifier, notifications.NewService(cfg))
		}

		loc := cfg.Location()
		aggregator := visibility.NewAggregator(repo, loc)
		service := visibility.NewService(cfg, repo,
			visibility.NewPoller(cfg, repo, fetcher, aggregator, archive),
			visibility.NewReporter(repo, loc, cfg.OverviewWindowDays),
			notifier)

		_, err = service.RunScheduledPoll(cmd.Context())
		return err
	},
}

func init() {
	digestCmd.Flags().Bool("send", false, "also deliver the digest to the configured channels")
	rootCmd.AddCommand(digestCmd)
}
