package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gitpersona/cmd/common"
	"gitpersona/cmd/git"
	"gitpersona/cmd/github"
)

var (
	outputFile string
	configFile string
	ErrCmd     error = errors.New("errCmd")
)

func NewCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gitpersona",
		Short: "Gitpersona extracts author and committer identities from Git history and correlates them.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return common.Setup(cmd, configFile, outputFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return common.Close()
		},
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	rootCmd.Flags().SortFlags = false
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&outputFile, "output", "o", "", "Output file")
	pf.StringVarP(&configFile, "config", "c", "", "Config file (default ./gitpersona.yaml)")
	pf.String("log-level", "info", "Log level (trace|debug|info|warn|error|off)")
	pf.String("log-format", "console", "Log format (console|json)")
	pf.StringP("format", "f", "text", "Report format (text|json|yaml)")
	pf.BoolP("verbose", "v", false, "List every identity in the report")
	pf.String("color", "auto", "Colorize the report (auto|always|never)")
	pf.Bool("no-color", false, "Same as --color never")

	rootCmd.AddCommand(github.NewCommand())
	rootCmd.AddCommand(git.NewCommand())

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.Printf("Error: %s\n", err)
		return ErrCmd
	})

	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewCommand()
	err := rootCmd.ExecuteContext(ctx)
	common.Close()
	if err != nil {
		if err != ErrCmd {
			fmt.Fprintln(os.Stderr, "Error:", common.Summarize(err))
		}
		stop()
		os.Exit(1)
	}
}
