package main

import (
	"fmt"

	"github.com/finveo/cardfeed/internal/cli"
	"github.com/finveo/cardfeed/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage catalog users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <email> <password>",
		Short: "Create a new user",
		Args:  cobra.ExactArgs(2),
		RunE:  runUsersCreate,
	})

	return cmd
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, password := args[0], args[1]

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("User %s created with id %d.", user.Email, user.ID)))
	return nil
}
