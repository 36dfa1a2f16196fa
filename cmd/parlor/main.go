// Parlor - terminal client for the parlor chat backend
// License: MIT

package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/parlorchat/parlor/cmd/parlor/internal"
	"github.com/parlorchat/parlor/cmd/parlor/internal/auth"
	"github.com/parlorchat/parlor/cmd/parlor/internal/chat"
	"github.com/parlorchat/parlor/cmd/parlor/internal/version"
)

func NewParlorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "parlor",
		Short:   "parlor - direct messages from your terminal v" + internal.GetVersion(),
		Example: "parlor chat",
	}

	cmd.AddCommand(
		auth.NewAuthCommand(),
		chat.NewChatCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	_ = godotenv.Load()

	cmd := NewParlorCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
