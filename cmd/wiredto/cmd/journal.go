/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/journal"
	"github.com/ssargent/wiredto/pkg/proto"
)

// journalCmd represents the journal command
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Append to or dump the capture journal",
}

var journalAppendCmd = &cobra.Command{
	Use:   "append <type> <file>",
	Short: "Validate a payload and append it to the journal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asHex, _ := cmd.Flags().GetBool("hex")
		data, err := readInput(cmd, args[1], asHex)
		if err != nil {
			return err
		}
		w, err := container.Journal()
		if err != nil {
			return err
		}
		offset, err := w.Append(args[0], data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "appended %s (%d bytes) at offset %d\n", args[0], len(data), offset)
		return nil
	},
}

var journalDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "List the records in the journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetInt64("from")
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg := container.Config()
		return dumpJournal(cmd.OutOrStdout(), journal.ReaderConfig{
			FilePath:    cfg.JournalPath(),
			StartOffset: from,
			MaxPayload:  cfg.MaxPayload(),
		}, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalAppendCmd)
	journalCmd.AddCommand(journalDumpCmd)

	journalAppendCmd.Flags().Bool("hex", false, "Input is hex text")
	journalDumpCmd.Flags().Int64("from", 0, "Offset to start reading from")
	journalDumpCmd.Flags().Bool("json", false, "Print each decoded record as a JSON line")
}

type dumpLine struct {
	Offset int64       `json:"offset"`
	Type   string      `json:"type"`
	Time   time.Time   `json:"time"`
	Size   int         `json:"size"`
	Value  interface{} `json:"value,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// dumpJournal prints every record from cfg.StartOffset. A damaged tail
// is reported after the records that precede it.
func dumpJournal(out io.Writer, cfg journal.ReaderConfig, asJSON bool) error {
	r, err := journal.NewReader(cfg)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer r.Close()

	var lines []dumpLine
	it := r.Iterator()
	for it.Next() {
		e := it.Entry()
		line := dumpLine{
			Offset: e.Offset,
			Type:   e.Record.TypeName(),
			Time:   time.Unix(0, int64(e.Record.Timestamp)).UTC(),
			Size:   len(e.Record.Payload),
		}
		if desc, ok := proto.Lookup(line.Type); ok {
			v, _, err := desc.Decode(codec.NewBuffer(e.Record.Payload), 0)
			if err != nil {
				line.Error = err.Error()
			} else {
				line.Value = v
			}
		} else {
			line.Error = "unregistered type"
		}
		lines = append(lines, line)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		for _, l := range lines {
			if err := enc.Encode(l); err != nil {
				return err
			}
		}
	} else {
		tw := tablewriter.NewWriter(out)
		tw.SetHeader([]string{"Offset", "Type", "Size", "Time", "Status"})
		tw.SetBorder(true)
		tw.SetAutoWrapText(false)
		for _, l := range lines {
			status := "ok"
			if l.Error != "" {
				status = l.Error
			}
			tw.Append([]string{
				strconv.FormatInt(l.Offset, 10),
				l.Type,
				strconv.Itoa(l.Size),
				l.Time.Format(time.RFC3339),
				status,
			})
		}
		tw.Render()
	}

	if err := it.Err(); err != nil {
		return fmt.Errorf("journal damaged after offset %d: %w", r.Offset(), err)
	}
	return nil
}
