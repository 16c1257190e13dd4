/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/proto"
	"github.com/ssargent/wiredto/pkg/storage"
)

// corpusCmd represents the corpus command
var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the fixture corpus of validated payloads",
}

var corpusPutCmd = &cobra.Command{
	Use:   "put <type> <file>",
	Short: "Validate a payload and store it in the corpus",
	Long: `Validate a payload and store it in the corpus under a new id.

Example:
  wiredto corpus put ModelAsset asset.bin`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asHex, _ := cmd.Flags().GetBool("hex")
		data, err := readInput(cmd, args[1], asHex)
		if err != nil {
			return err
		}
		corpus, err := container.Corpus()
		if err != nil {
			return err
		}
		id, err := corpus.Put(args[0], data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
		return nil
	},
}

var corpusGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored payload as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		corpus, err := container.Corpus()
		if err != nil {
			return err
		}
		e, err := corpus.Get(id)
		if err != nil {
			return err
		}
		if raw {
			_, err := cmd.OutOrStdout().Write(e.Payload)
			return err
		}
		desc, err := proto.Resolve(e.Type)
		if err != nil {
			return err
		}
		v, _, err := desc.Decode(codec.NewBuffer(e.Payload), 0)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"id": e.ID.String(), "type": e.Type, "value": v})
	},
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored payloads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		typeName, _ := cmd.Flags().GetString("type")
		corpus, err := container.Corpus()
		if err != nil {
			return err
		}

		tw := tablewriter.NewWriter(cmd.OutOrStdout())
		tw.SetHeader([]string{"ID", "Type", "Size", "Created"})
		tw.SetBorder(true)
		tw.SetAutoWrapText(false)
		err = corpus.List(func(e storage.Entry) bool {
			if typeName == "" || e.Type == typeName {
				tw.Append([]string{e.ID.String(), e.Type, strconv.Itoa(len(e.Payload)), e.ID.Time().UTC().Format("2006-01-02 15:04:05")})
			}
			return true
		})
		if err != nil {
			return err
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusPutCmd)
	corpusCmd.AddCommand(corpusGetCmd)
	corpusCmd.AddCommand(corpusListCmd)

	corpusPutCmd.Flags().Bool("hex", false, "Input is hex text")
	corpusGetCmd.Flags().Bool("raw", false, "Write the raw payload bytes instead of JSON")
	corpusListCmd.Flags().String("type", "", "Only list entries of this type")
}
