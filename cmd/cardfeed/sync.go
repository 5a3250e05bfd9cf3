package main

import (
	"fmt"
	"os"

	"github.com/finveo/cardfeed/internal/cli"
	"github.com/finveo/cardfeed/internal/engine"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the card catalog from the feed",
		Long: `Fetch the current batch of card products from the upstream feed and
upsert them into the local catalog.

Records are matched by their stable external id; unchanged records are
skipped. The whole batch commits as one transaction: any failure rolls
everything back. Run only one sync at a time against a catalog.`,
		RunE: runSync,
	}

	cmd.Flags().BoolP("force", "f", false, "Force update all records, bypassing change detection")

	_ = viper.BindPFlag("sync.force", cmd.Flags().Lookup("force"))

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	force := viper.GetBool("sync.force")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	var bar *progressbar.ProgressBar
	eng := engine.New(initFeedClient(), store, engine.WithProgress(func(processed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Synchronizing catalog..."),
			)
		}
		_ = bar.Set(processed)
	}))

	stats, err := eng.Synchronize(ctx, force)
	if err != nil {
		fmt.Println(cli.FormatError("Synchronization failed; no changes were applied"))
		return err
	}

	suffix := ""
	if force {
		suffix = " (force update)"
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Catalog synchronized%s. Total: %d, Added: %d, Updated: %d, Skipped: %d",
		suffix, stats.Total, stats.Added, stats.Updated, stats.Skipped)))

	return nil
}
