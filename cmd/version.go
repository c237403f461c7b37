package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "antelope 0.1.0"

func init() {
	antelopeCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of Antelope",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(version)
			},
		})
}
