package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/finveo/cardfeed/internal/cli"
	"github.com/finveo/cardfeed/internal/common"
	"github.com/finveo/cardfeed/internal/edits"
	"github.com/spf13/cobra"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <card-id>",
		Short: "Override display fields of a card",
		Long: `Submit a personal override for a card's display name, description or
annual charges. Overrides never modify the canonical record; they are
layered over it when you view the catalog.

The first user to edit a card claims edit rights on it: other users
cannot edit that card while an edit exists.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}

	cmd.Flags().Int64("user", 0, "Acting user id (required)")
	cmd.Flags().String("name", "", "Override the display name")
	cmd.Flags().String("description", "", "Override the description")
	cmd.Flags().Float64("annual-charges", 0, "Override the recurring annual charges")
	_ = cmd.MarkFlagRequired("user")

	cmd.AddCommand(editHistoryCmd())

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cardID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid card id %q: %w", args[0], err)
	}
	userID, _ := cmd.Flags().GetInt64("user")

	var input edits.Input
	if cmd.Flags().Changed("name") {
		v, _ := cmd.Flags().GetString("name")
		input.Name = &v
	}
	if cmd.Flags().Changed("description") {
		v, _ := cmd.Flags().GetString("description")
		input.Description = &v
	}
	if cmd.Flags().Changed("annual-charges") {
		v, _ := cmd.Flags().GetFloat64("annual-charges")
		input.AnnualCharges = &v
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	edit, err := edits.NewService(store).CreateEdit(ctx, cardID, userID, input)
	switch {
	case errors.Is(err, common.ErrAuthenticationRequired):
		return fmt.Errorf("a valid --user is required to edit a card")
	case errors.Is(err, common.ErrNotAuthorized):
		fmt.Println(cli.FormatWarning("This card is already edited by another user."))
		return err
	case err != nil:
		var validationErr *common.ValidationError
		if errors.As(err, &validationErr) {
			for field, msg := range validationErr.Fields {
				fmt.Println(cli.FormatError(field + ": " + msg))
			}
		}
		return err
	case edit == nil:
		fmt.Println(cli.SubtleStyle.Render("Nothing to change; no override saved."))
		return nil
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Override saved for card %d.", cardID)))
	return nil
}

func editHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <card-id>",
		Short: "List the edit history of a card, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runEditHistory,
	}
}

func runEditHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cardID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid card id %q: %w", args[0], err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	history, err := edits.NewService(store).History(ctx, cardID)
	if err != nil {
		return fmt.Errorf("failed to list edits: %w", err)
	}

	if len(history) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No edits for this card."))
		return nil
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Edit history for card %d", cardID)))
	for _, edit := range history {
		line := fmt.Sprintf("%s  user %d:", edit.CreatedAt.Format("2006-01-02 15:04"), edit.UserID)
		if edit.Name != nil {
			line += fmt.Sprintf(" name=%q", *edit.Name)
		}
		if edit.Description != nil {
			line += " description=(set)"
		}
		if edit.AnnualCharges != nil {
			line += fmt.Sprintf(" annual-charges=%.2f", *edit.AnnualCharges)
		}
		fmt.Println(line)
	}

	return nil
}
