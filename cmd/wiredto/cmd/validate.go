/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/proto"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <type> <file>",
	Short: "Structurally validate a payload without decoding it",
	Long: `Check that a file holds a well-formed encoding of the given type: the
fixed block fits, every offset is in range, no two fields overlap, lengths
are within the configured limits, map keys ascend and enum values are
defined.

Use "-" as the file to read stdin.

Examples:
  wiredto validate ModelAsset asset.bin
  echo "01 00000000 ffffffff" | wiredto validate AssetLabel - --hex`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asHex, _ := cmd.Flags().GetBool("hex")
		desc, err := proto.Resolve(args[0])
		if err != nil {
			return err
		}
		data, err := readInput(cmd, args[1], asHex)
		if err != nil {
			return err
		}
		return validatePayload(cmd.OutOrStdout(), desc, data, container.Config().CodecLimits())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("hex", false, "Input is hex text")
}

// validatePayload reports the outcome and returns the failure, if any.
func validatePayload(out io.Writer, desc proto.Descriptor, data []byte, limits codec.Limits) error {
	buf := codec.NewBuffer(data)
	res := desc.Validate(buf, 0, limits)
	if !res.OK {
		fmt.Fprintf(out, "INVALID %s: %s\n", desc.Name, res.Reason)
		return res.Err()
	}
	n, err := desc.Schema.BytesConsumed(buf, 0)
	if err != nil {
		fmt.Fprintf(out, "INVALID %s: %v\n", desc.Name, err)
		return err
	}
	fmt.Fprintf(out, "OK %s: %d bytes\n", desc.Name, n)
	if trailing := len(data) - n; trailing > 0 {
		fmt.Fprintf(out, "warning: %d trailing bytes after the value\n", trailing)
	}
	return nil
}
