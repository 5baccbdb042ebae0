package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/ideogram-genes/internal/assembly"
)

func newAssembliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assemblies",
		Short: "List supported genome assemblies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "#Assembly\tService_name")
			for _, name := range assembly.Names() {
				a, _ := assembly.Parse(name)
				legacy, _ := a.LegacyName()
				marker := ""
				if a == assembly.Default {
					marker = "\t(default)"
				}
				fmt.Fprintf(out, "%s\t%s%s\n", a, legacy, marker)
			}
			return nil
		},
	}
}
