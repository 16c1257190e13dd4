/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/proto"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <type> <file>",
	Short: "Decode a payload and print it as JSON",
	Long: `Validate and decode a payload of the given type and print the value as
JSON. The payload is re-encoded and compared with the input; a mismatch is
reported on stderr.

Examples:
  wiredto decode InteractionChain chain.bin
  wiredto decode Vector3f - --hex < vec.hex`,
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
		return decodePayload(cmd.OutOrStdout(), cmd.ErrOrStderr(), desc, data, container.Config().CodecLimits())
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().Bool("hex", false, "Input is hex text")
}

func decodePayload(out, errOut io.Writer, desc proto.Descriptor, data []byte, limits codec.Limits) error {
	buf := codec.NewBuffer(data)
	if res := desc.Validate(buf, 0, limits); !res.OK {
		return res.Err()
	}
	v, n, err := desc.Decode(buf, 0)
	if err != nil {
		return err
	}

	if again, err := codec.Marshal(v); err != nil || !bytes.Equal(again, data[:n]) {
		fmt.Fprintf(errOut, "warning: %s does not re-encode to its input\n", desc.Name)
	}
	if n < len(data) {
		fmt.Fprintf(errOut, "warning: %d trailing bytes after the value\n", len(data)-n)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
