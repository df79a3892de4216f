package main

import (
	"fmt"
	"os"

	"github.com/jrsteele09/cartcash/internal/config"
	"github.com/jrsteele09/cartcash/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "cartcash",
		Short:         "Shopify session and credential service for the CartCash dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				config.LoadDotEnv(envFile)
			} else {
				config.LoadDotEnv()
			}
			c := config.New()
			logging.Setup(c.GetEnv(), c.GetLogLevel())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env.local, then .env)")

	root.AddCommand(newServeCommand(), newSessionsCommand())
	return root
}
