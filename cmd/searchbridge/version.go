package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchbridge/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "searchbridge version %s\n", version.Version)
			fmt.Fprintf(w, "  commit:     %s\n", version.Commit)
			fmt.Fprintf(w, "  built:      %s\n", version.Date)
			fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
			return nil
		},
	}
}
