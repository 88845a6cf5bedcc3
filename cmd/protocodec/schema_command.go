package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const wellKnownPrefix = "google.protobuf."

func newSchemaCommand(g *globalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "schema [name]",
		Short: "List loaded types or show one definition",
		Long: `Without arguments lists the loaded messages, enums and services.
With a name prints that message, enum or service definition as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(g)
			if err != nil {
				return err
			}
			defer s.close()

			reg := s.codec.Registry()
			if len(args) == 1 {
				if msg, err := reg.GetMessage(args[0]); err == nil {
					return writeJSON(cmd.OutOrStdout(), msg, true)
				}
				if enum, err := reg.GetEnum(args[0]); err == nil {
					return writeJSON(cmd.OutOrStdout(), enum, true)
				}
				service, err := reg.GetService(args[0])
				if err != nil {
					return fmt.Errorf("no message, enum or service named %s", args[0])
				}
				return writeJSON(cmd.OutOrStdout(), service, true)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			list(tw, "message", reg.ListMessages(), all)
			list(tw, "enum", reg.ListEnums(), all)
			list(tw, "service", reg.ListServices(), all)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include google.protobuf well-known types")
	return cmd
}

func list(w io.Writer, kind string, names []string, all bool) {
	for _, name := range names {
		if !all && strings.HasPrefix(name, wellKnownPrefix) {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", kind, name)
	}
}
