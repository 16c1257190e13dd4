/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/proto"
)

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample <type>",
	Short: "Encode a representative value of a type",
	Long: `Encode the built-in sample value of a type, for use as a fixture.
Without --out the encoding is printed as hex.

Examples:
  wiredto sample ModelAsset
  wiredto sample Trail --out trail.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")
		desc, err := proto.Resolve(args[0])
		if err != nil {
			return err
		}
		data, err := codec.Marshal(desc.Sample())
		if err != nil {
			return err
		}
		if outPath == "" {
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), outPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().StringP("out", "o", "", "Write the raw encoding to this file")
}
