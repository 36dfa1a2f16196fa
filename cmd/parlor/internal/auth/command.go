package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parlorchat/parlor/cmd/parlor/internal"
	"github.com/parlorchat/parlor/pkg/api"
	"github.com/parlorchat/parlor/pkg/session"
)

const authTimeout = 30 * time.Second

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Short:   "Manage the parlor session",
		Example: "parlor auth login",
	}

	cmd.AddCommand(
		newLoginCommand(),
		newRegisterCommand(),
		newVerifyCommand(),
		newWhoamiCommand(),
		newLogoutCommand(),
	)

	return cmd
}

func newLoginCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the credential",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			scanner := newScanner(os.Stdin)
			if email == "" {
				if email, err = promptLine("Email", scanner); err != nil {
					return err
				}
			}
			password, err := promptLine("Password", scanner)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
			defer cancel()

			result, err := client.Login(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			return storeCredential(result)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")

	return cmd
}

func newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account (completes with 'parlor auth verify')",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			scanner := newScanner(os.Stdin)
			username, err := promptLine("Username", scanner)
			if err != nil {
				return err
			}
			email, err := promptLine("Email", scanner)
			if err != nil {
				return err
			}
			password, err := promptLine("Password", scanner)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
			defer cancel()

			if err := client.Register(ctx, username, email, password); err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			fmt.Println("Account created. Check your email for the verification code,")
			fmt.Println("then run: parlor auth verify")
			return nil
		},
	}
}

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify a registration code and log in",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			scanner := newScanner(os.Stdin)
			email, err := promptLine("Email", scanner)
			if err != nil {
				return err
			}
			code, err := promptLine("Code", scanner)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
			defer cancel()

			result, err := client.VerifyOTP(ctx, email, code)
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}

			return storeCredential(result)
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in identity",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cred, err := session.LoadCredential(internal.GetCredentialsPath())
			if err != nil {
				return err
			}
			if cred == nil {
				fmt.Println("Not logged in. Run: parlor auth login")
				return nil
			}
			fmt.Printf("%s <%s>\n", cred.Identity.Username, cred.Identity.ID)
			return nil
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := session.ClearCredential(internal.GetCredentialsPath()); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newAPIClient() (*api.Client, error) {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return api.NewClient(cfg.API.BaseURL, cfg.APITimeout(), nil), nil
}

func storeCredential(result *api.AuthResult) error {
	cred := session.Credential{
		Token: result.Token,
		Identity: session.Identity{
			ID:        result.User.ID,
			Username:  result.User.Username,
			AvatarURL: result.User.AvatarURL,
		},
	}
	if err := session.SaveCredential(internal.GetCredentialsPath(), cred); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	fmt.Printf("Logged in as %s.\n", cred.Identity.Username)
	return nil
}
