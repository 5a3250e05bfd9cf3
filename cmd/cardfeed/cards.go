package main

import (
	"fmt"
	"strings"

	"github.com/finveo/cardfeed/internal/cli"
	"github.com/finveo/cardfeed/internal/model"
	"github.com/finveo/cardfeed/internal/service"
	"github.com/spf13/cobra"
)

func cardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Browse the card catalog",
	}

	cmd.AddCommand(cardsListCmd())
	cmd.AddCommand(cardsStatsCmd())

	return cmd
}

func cardsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog cards",
		Long: `List active cards ordered by rating, optionally filtered.

With --as-user, the viewer's overrides are blended over canonical
values: charge filters match against the effective annual charges and
the listing shows the overridden name and charge.`,
		RunE: runCardsList,
	}

	cmd.Flags().String("type", "", "Filter by card type (CREDIT or DEBIT)")
	cmd.Flags().Int64Slice("banks", nil, "Filter by bank ids (comma-separated)")
	cmd.Flags().Float64("rate-min", 0, "Minimum annual equivalent rate (inclusive)")
	cmd.Flags().Float64("rate-max", 0, "Maximum annual equivalent rate (inclusive)")
	cmd.Flags().Float64("charge-min", 0, "Minimum annual charges (inclusive, effective value)")
	cmd.Flags().Float64("charge-max", 0, "Maximum annual charges (inclusive, effective value)")
	cmd.Flags().Int64("as-user", 0, "View the catalog as this user id, applying their overrides")

	return cmd
}

func runCardsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, err := cardFilterFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	cards, err := store.ListCards(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list cards: %w", err)
	}

	if len(cards) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No cards match the given filters."))
		return nil
	}

	fmt.Println(cli.FormatTitle("Card catalog"))
	fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf(
		"%-6s %-40s %-8s %8s %10s %8s", "ID", "NAME", "TYPE", "RATE", "CHARGES", "RATING")))
	for i := range cards {
		card := &cards[i]
		fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf(
			"%-6d %-40s %-8s %8.2f %10.2f %8.1f",
			card.ID, truncate(card.Name, 40), card.CardType,
			card.AnnualEquivalentRate, card.AnnualCharges, card.Rating)))
	}

	return nil
}

func cardFilterFromFlags(cmd *cobra.Command) (service.CardFilter, error) {
	var filter service.CardFilter

	if cmd.Flags().Changed("type") {
		raw, _ := cmd.Flags().GetString("type")
		cardType := model.CardType(strings.ToUpper(raw))
		if cardType != model.CardTypeCredit && cardType != model.CardTypeDebit {
			return filter, fmt.Errorf("invalid card type %q: must be CREDIT or DEBIT", raw)
		}
		filter.CardType = &cardType
	}
	if cmd.Flags().Changed("banks") {
		filter.BankIDs, _ = cmd.Flags().GetInt64Slice("banks")
	}
	if cmd.Flags().Changed("rate-min") {
		v, _ := cmd.Flags().GetFloat64("rate-min")
		filter.RateMin = &v
	}
	if cmd.Flags().Changed("rate-max") {
		v, _ := cmd.Flags().GetFloat64("rate-max")
		filter.RateMax = &v
	}
	if cmd.Flags().Changed("charge-min") {
		v, _ := cmd.Flags().GetFloat64("charge-min")
		filter.ChargeMin = &v
	}
	if cmd.Flags().Changed("charge-max") {
		v, _ := cmd.Flags().GetFloat64("charge-max")
		filter.ChargeMax = &v
	}
	if cmd.Flags().Changed("as-user") {
		v, _ := cmd.Flags().GetInt64("as-user")
		filter.ViewerID = &v
	}

	return filter, nil
}

// truncate shortens a display string to max runes, never cutting a
// multi-byte character in half.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func cardsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		RunE:  runCardsStats,
	}
}

func runCardsStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	stats, err := store.GetCatalogStats(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to get catalog stats: %w", err)
	}

	fmt.Println(cli.FormatTitle("Catalog statistics"))
	fmt.Printf("Credit cards: %d\n", stats.CardTypes[model.CardTypeCredit])
	fmt.Printf("Debit cards:  %d\n", stats.CardTypes[model.CardTypeDebit])
	fmt.Println()
	fmt.Println("By annual equivalent rate:")
	fmt.Printf("  below 15%%:  %d\n", stats.RateBuckets.Below15)
	fmt.Printf("  15%% to 30%%: %d\n", stats.RateBuckets.From15To30)
	fmt.Printf("  above 30%%:  %d\n", stats.RateBuckets.Above30)
	fmt.Println()
	fmt.Println("By bank:")
	for _, bank := range stats.Banks {
		fmt.Printf("  %-40s %d\n", bank.Name, bank.Count)
	}

	return nil
}
