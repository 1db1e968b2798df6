package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/modules"
	"github.com/optstrat/infra/pkg/provision"
)

func newGraphCommand() *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the module dependency graph",
		Long: `Graph prints the module execution order and the parallelizable
levels of the stack's dependency graph. With --dot it emits Graphviz
DOT instead, suitable for piping into dot(1).`,
		Example: `  stratctl graph

  # Render the graph as an image
  stratctl graph --dot | dot -Tpng -o stack.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The graph shape is configuration-independent, so an
			// in-memory provisioner is enough to build it.
			mem := provision.NewMemory()
			graph, err := engine.NewModuleGraph(modules.All(mem, log.Logger))
			if err != nil {
				return err
			}

			if dot {
				fmt.Fprint(cmd.OutOrStdout(), graph.ToDOT())
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Execution order: %s\n", strings.Join(graph.Order(), " -> "))
			fmt.Fprintln(cmd.OutOrStdout(), "Levels:")
			for i, level := range graph.Levels() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %d: %s\n", i, strings.Join(level, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dot, "dot", false, "emit Graphviz DOT output")

	return cmd
}
