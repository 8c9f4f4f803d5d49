package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/haivivi/antispoof/cmd/antispoof/internal/build"
	"github.com/haivivi/antispoof/pkg/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatOutput == string(cli.FormatJSON) || formatOutput == string(cli.FormatYAML) {
			opts, err := outputOptions()
			if err != nil {
				return err
			}
			return cli.Output(build.Get(), opts)
		}
		fmt.Println(build.String())
		if IsVerbose() {
			fmt.Printf("  go:     %s\n", runtime.Version())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
