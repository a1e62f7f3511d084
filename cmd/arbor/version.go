package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborhq/arbor"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the arbor version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "arbor %s\n", arbor.Version)
		},
	}
}
