package admin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/outreach/internal/crypto"
	"github.com/iudanet/outreach/internal/server/storage"
	"github.com/iudanet/outreach/internal/validation"
)

// ErrPasswordMismatch - введенные пароли не совпали
var ErrPasswordMismatch = errors.New("passwords do not match")

func (a *app) newPasswdCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <email>",
		Short: "Reset the login password of a user",
		Long: `Prompts for a new password twice and replaces the stored credential.
Existing sessions stay valid until they expire.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email := strings.TrimSpace(args[0])

			password, err := a.readNewPassword()
			if err != nil {
				return err
			}

			store, cfg, err := a.openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, storage.ErrUserNotFound) {
					return fmt.Errorf("user %s not found", email)
				}
				return fmt.Errorf("failed to get user: %w", err)
			}

			hash, err := crypto.HashPasswordWithCost(password, cfg.Auth.BcryptCost)
			if err != nil {
				return err
			}
			if err := store.UpdatePassword(ctx, user.ID, hash); err != nil {
				return fmt.Errorf("failed to update password: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", user.Email)
			return nil
		},
	}
}

func (a *app) readNewPassword() (string, error) {
	if a.opts.Prompter == nil {
		return "", errors.New("no password prompt available")
	}

	password, err := a.opts.Prompter.ReadPassword("New password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", err
	}

	confirm, err := a.opts.Prompter.ReadPassword("Repeat password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}
