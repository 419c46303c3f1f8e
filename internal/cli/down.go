package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackbench-io/stackbench/internal/awsconfig"
	"github.com/stackbench-io/stackbench/internal/stack"
)

var (
	downRegion     string
	downCredential string
)

var downCmd = &cobra.Command{
	Use:   "down STACK...",
	Short: "Delete named stacks",
	Long: `Deletes the named CloudFormation stacks, best-effort: a stack that
fails to delete does not stop the others. Use it to clear stacks left
behind by a --keep run or an interrupted one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDown,
}

func init() {
	downCmd.Flags().StringVar(&downRegion, "region", "", "Target AWS region")
	downCmd.Flags().StringVar(&downCredential, "credential", "", "Shared-config profile to use")
	_ = downCmd.MarkFlagRequired("region")
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loader := awsconfig.NewLoader(downCredential)
	factory := stack.NewFactory(stack.AWSClients(loader))

	var errs []error
	for _, name := range args {
		res := factory.Delete(ctx, name, downRegion)
		if res.Err != nil {
			fmt.Printf("failed   %s: %v\n", name, res.Err)
			errs = append(errs, fmt.Errorf("%s: %w", name, res.Err))
			continue
		}
		fmt.Printf("deleted  %s\n", name)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d stack(s) failed to delete: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
