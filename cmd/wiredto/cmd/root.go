/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/wiredto/pkg/config"
	"github.com/ssargent/wiredto/pkg/di"
	"github.com/ssargent/wiredto/pkg/logging"
)

var (
	container *di.Container
	logCloser io.Closer
)

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wiredto",
	Short: "wiredto - binary wire format toolkit",
	Long: `wiredto validates, decodes and records payloads in the null-mask /
fixed block / variable block wire format used by the registered asset and
interaction types.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			container = di.NewContainer()
		}

		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}

		closer, err := logging.Init(cfg.Logging, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logCloser = closer

		container.Configure(cfg)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if container != nil {
			err = container.Close()
		}
		if logCloser != nil {
			logCloser.Close()
			logCloser = nil
		}
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ~/.config/wiredto/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads configPath, or the default path when it is empty. A
// missing default file means defaults; a missing explicit file is an error.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
		if !config.ConfigExists(configPath) {
			return config.DefaultConfig(), nil
		}
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// readInput reads a payload from path, or stdin for "-". With asHex the
// contents are hex text and whitespace is ignored.
func readInput(cmd *cobra.Command, path string, asHex bool) ([]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if !asHex {
		return data, nil
	}
	return decodeHex(string(data))
}

func decodeHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}
