package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"leafscan/config"
	"leafscan/internal/container"
	"leafscan/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "leafscan",
		Short:         "Rice leaf disease detector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "path to .env file (default .env)")

	root.AddCommand(newServeCmd(&envFile), newDetectCmd(&envFile))
	return root
}

// setup читает конфигурацию, настраивает логгер и собирает зависимости
func setup(envFile string) (*container.Container, *logrus.Logger, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	c, err := container.New(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("build container: %w", err)
	}

	return c, log, nil
}
