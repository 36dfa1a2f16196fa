package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/parlorchat/parlor/cmd/parlor/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print parlor version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("parlor %s (%s)\n", internal.FormatVersion(), runtime.Version())
		},
	}
}
