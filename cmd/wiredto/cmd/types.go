/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ssargent/wiredto/pkg/proto"
)

// typesCmd represents the types command
var typesCmd = &cobra.Command{
	Use:   "types [type]",
	Short: "List registered wire types or show one type's layout",
	Long: `List every registered wire type with its fixed block size and maximum
encoded size, or show the field layout of a single type.

Examples:
  wiredto types
  wiredto types ModelAsset`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			printTypes(cmd.OutOrStdout())
			return nil
		}
		desc, err := proto.Resolve(args[0])
		if err != nil {
			return err
		}
		printLayout(cmd.OutOrStdout(), desc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}

func printTypes(out io.Writer) {
	tw := tablewriter.NewWriter(out)
	tw.SetHeader([]string{"Type", "Fields", "Fixed Block", "Mask", "Max Size"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, d := range proto.Descriptors() {
		s := d.Schema
		maxSize := strconv.Itoa(s.MaxSize())
		if _, fixed := s.FixedSize(); fixed {
			maxSize += " (fixed)"
		}
		tw.Append([]string{
			d.Name,
			strconv.Itoa(len(s.Fields())),
			strconv.Itoa(s.FixedBlockSize()),
			strconv.Itoa(s.MaskWidth()),
			maxSize,
		})
	}

	tw.Render()
}

func printLayout(out io.Writer, d proto.Descriptor) {
	fmt.Fprintf(out, "%s: fixed block %d bytes, null mask %d bytes\n", d.Name, d.Schema.FixedBlockSize(), d.Schema.MaskWidth())

	tw := tablewriter.NewWriter(out)
	tw.SetHeader([]string{"#", "Field", "Type", "Pos", "Width", "Bit", "Storage"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, fd := range d.Schema.Fields() {
		bit := "-"
		if fd.Nullable {
			bit = strconv.Itoa(fd.Bit)
		}
		storage := "inline"
		if fd.Variable {
			storage = "offset"
		}
		tw.Append([]string{
			strconv.Itoa(fd.Index),
			fd.Name,
			fd.Type.TypeName(),
			strconv.Itoa(fd.Pos),
			strconv.Itoa(fd.Width),
			bit,
			storage,
		})
	}

	tw.Render()
}
