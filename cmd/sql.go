package cmd

import (
	"github.com/spf13/cobra"

	"github.com/klundeen/5300-Antelope/repl"
)

var (
	sqlCmd = &cobra.Command{
		Use:   "sql [file ...]",
		Short: "Run statements from flags or files, or from an interactive console",
		RunE:  sqlRun,
	}
)

func init() {
	initServerFlags(sqlCmd.Flags())

	antelopeCmd.AddCommand(sqlCmd)
}

func sqlRun(cmd *cobra.Command, args []string) error {
	svr, err := newServer(args)
	if err != nil {
		return err
	}
	defer svr.Executor.Tables().Store().Close()

	if len(args) == 0 && len(sqlArgs) == 0 {
		svr.HandleSession(repl.Interact(svr.Format), "startup", "console", "")
	}
	return nil
}
