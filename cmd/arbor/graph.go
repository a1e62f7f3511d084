package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborhq/arbor/internal/config"
	"github.com/arborhq/arbor/internal/presentation/graph"
	"github.com/arborhq/arbor/pkg/adapters/memory"
)

func newGraphCmd() *cobra.Command {
	var (
		file   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render a machine definition's transition graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(file)
			if err != nil {
				return err
			}

			// Build on throwaway in-memory adapters; rendering only needs
			// the transition table.
			machine, err := cfg.Build(memory.NewBus(), memory.NewScheduler())
			if err != nil {
				return err
			}

			edges := machine.Edges()
			switch format {
			case "dot":
				fmt.Fprintln(cmd.OutOrStdout(), graph.DOT(edges))
			case "mermaid":
				fmt.Fprint(cmd.OutOrStdout(), graph.Mermaid(edges, ""))
			case "link":
				fmt.Fprintln(cmd.OutOrStdout(), graph.Link(edges))
			default:
				return fmt.Errorf("unknown graph format %q", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "machine definition file (required)")
	cmd.Flags().StringVar(&format, "format", "dot", "output format (dot, mermaid, link)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
