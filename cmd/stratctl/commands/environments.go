package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/optstrat/infra/pkg/config"
)

func newEnvironmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "environments",
		Aliases: []string{"envs"},
		Short:   "List the supported environments and their key presets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENVIRONMENT\tVPC CIDR\tAZS\tLOG RETENTION\tLAMBDA MEMORY")
			for _, name := range config.Environments() {
				cfg, err := config.Resolve(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%dd\t%dMB\n",
					cfg.Environment,
					cfg.Networking.VPCCIDR,
					cfg.Networking.MaxAZs,
					cfg.Monitoring.LogRetentionDays,
					cfg.Resources.LambdaMemoryMB)
			}
			return w.Flush()
		},
	}

	return cmd
}
