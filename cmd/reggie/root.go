package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalFlags struct {
	Config  string // path of a JSON transport config
	Wire    bool   // use the built-in HTTP/1.1 transport
	Verbose bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "reggie",
		Short:         "Transport-agnostic HTTP client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.Config, "config", "", "JSON transport config file")
	root.PersistentFlags().BoolVar(&g.Wire, "wire", false, "send with the built-in HTTP/1.1 transport instead of net/http")
	root.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "log every exchange")

	root.AddCommand(newFetchCmd(g))
	return root
}

func (g *globalFlags) logger() (*zap.Logger, error) {
	if g.Verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
