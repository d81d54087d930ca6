package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vculp/identity-server/internal/domain"
	"github.com/vculp/identity-server/internal/interfaces/cli/useradmin"
	"golang.org/x/term"
)

func newCreateCmd() *cobra.Command {
	var (
		email      string
		name       string
		userType   string
		externalID string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long:  "Create a user with the given email address and name. The password is read from the terminal.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.CreateUserRequest{
				Email: strings.TrimSpace(email),
				Name:  strings.TrimSpace(name),
			}
			switch strings.ToLower(userType) {
			case "admin":
				req.Type = domain.UserTypeAdmin
			case "standard":
				req.Type = domain.UserTypeStandard
			default:
				return fmt.Errorf("%s is not a valid user type, use admin or standard", userType)
			}
			if externalID != "" {
				id, err := uuid.Parse(externalID)
				if err != nil {
					return errors.New("invalid id: the id is expected to be a guid")
				}
				req.ExternalUserID = &id
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := s.console.Create(cmd.Context(), req); err != nil {
				return errors.New(useradmin.CreateFailureMessage(req.Email, err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address, also used as the user name")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&userType, "type", "standard", "User type: admin or standard")
	cmd.Flags().StringVar(&externalID, "external-id", "", "Id of the admin in the Vculp database (required for admin users)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	var userName string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.console.Reset(cmd.Context(), userName); err != nil {
				return errors.New(useradmin.ResetFailureMessage(userName, err))
			}
			cmd.Println("The password reset completed successfully.")
			return nil
		},
	}

	cmd.Flags().StringVar(&userName, "username", "", "User name of the account")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

// secretReader hides typed passwords when stdin is a terminal
func secretReader(cmd *cobra.Command) useradmin.SecretReader {
	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return func() (string, error) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("error reading password from terminal: %w", err)
		}
		return string(b), nil
	}
}
