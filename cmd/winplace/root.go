package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/winplace/internal/config"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "winplace",
		Short: "Move new windows to configured positions",
		Long: `winplace watches for newly opened top-level windows and moves and resizes
the ones whose executable has a configured rectangle.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: a.initLog,
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "settings file (default ~/.config/winplace/config.yaml)")
	root.PersistentFlags().Bool("debug", false, "debug logging")
	a.v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))

	root.AddCommand(
		a.newDaemonCmd(),
		a.newStopCmd(),
		a.newStatusCmd(),
		a.newRulesCmd(),
		a.newMCPCmd(),
	)
	return root
}

func (a *app) initLog(cmd *cobra.Command, args []string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if a.v.GetBool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// settings loads the merged settings. A debug setting from the file or the
// environment raises the log level the same way --debug does.
func (a *app) settings() (*config.Settings, error) {
	s, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, err
	}
	if s.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return s, nil
}
