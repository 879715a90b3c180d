package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brahma-adshonor/tablehook"
)

var (
	logLevelFlag     string
	threadPolicyFlag string
	waitFlag         string

	log = logrus.WithField("app", "tablehook-example")
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tablehook-example",
		Short:         "Hook virtual and function tables of an in-process host",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&threadPolicyFlag, "thread-policy", "log", "what to do when hooked code runs off the hook thread (log, panic)")
	rootCmd.PersistentFlags().StringVar(&waitFlag, "wait", "signal", "how to wait before unhooking (signal, stdin)")

	rootCmd.AddCommand(newDemoCmd(), newScanCmd(), newInterfaceCmd())
	return rootCmd
}

func setupLogging() error {
	level, err := logrus.ParseLevel(logLevelFlag)
	if err != nil {
		return err
	}
	if os.Getenv("TABLEHOOK_DEBUG") != "" {
		level = logrus.DebugLevel
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	tablehook.SetLogger(log)
	return nil
}

// sessionConfig builds the hook session settings from the flags.
func sessionConfig() (tablehook.Config, error) {
	policy, err := tablehook.ParseThreadPolicy(threadPolicyFlag)
	if err != nil {
		return tablehook.Config{}, err
	}
	return tablehook.Config{ThreadPolicy: policy, Logger: log}, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("exiting")
		os.Exit(1)
	}
}
