package main

import (
	"fmt"

	"github.com/finveo/cardfeed/internal/cli"
	"github.com/spf13/cobra"
)

func banksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banks",
		Short: "Browse issuing banks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known banks",
		RunE:  runBanksList,
	})

	return cmd
}

func runBanksList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	banks, err := store.ListBanks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list banks: %w", err)
	}

	if len(banks) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No banks in the catalog yet. Run `cardfeed sync` first."))
		return nil
	}

	fmt.Println(cli.FormatTitle("Issuing banks"))
	fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-6s %-40s %-16s", "ID", "NAME", "CODE")))
	for _, bank := range banks {
		fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-6d %-40s %-16s", bank.ID, bank.Name, bank.Code)))
	}

	return nil
}
