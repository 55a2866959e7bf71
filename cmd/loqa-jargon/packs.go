package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/jargon"
	"github.com/spf13/cobra"
)

var errInvalidPacks = errors.New("pack document has invalid entries")

type packFlags struct {
	packsFile string
	format    string
	server    string
	builtins  bool
}

var flags packFlags

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a pack document and report skipped entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, report, err := jargon.DecodePacks(data)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "entry %d (%s): %s\n", issue.Index, issue.ID, issue.Reason)
		}
		fmt.Fprintf(out, "%d valid, %d skipped\n", len(doc.Packs), len(report.Issues))
		if len(report.Issues) > 0 {
			return errInvalidPacks
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Merge a pack document into the packs file or a running daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var report jargon.ImportReport
		if flags.server != "" {
			report, err = importRemote(flags.server, data)
		} else {
			report, err = importLocal(flags.packsFile, data)
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "skipped entry %d (%s): %s\n", issue.Index, issue.ID, issue.Reason)
		}
		fmt.Fprintf(out, "imported %s\n", strings.Join(report.Imported, ", "))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the user packs as JSON or YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := openPacks(flags.packsFile)
		if err != nil {
			return err
		}
		data, err := catalog.ExportPacks(flags.format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles with their term and correction counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := openPacks(flags.packsFile)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLABEL\tSOURCE\tTERMS\tCORRECTIONS")
		for _, p := range catalog.Snapshot().Profiles {
			if p.ReadOnly() && !flags.builtins {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", p.ID, p.Label, p.Provenance, len(p.Terms), len(p.Corrections))
		}
		return tw.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{importCmd, exportCmd, listCmd} {
		c.Flags().StringVar(&flags.packsFile, "packs", "jargon-packs.yaml", "Path to the user packs file")
	}
	importCmd.Flags().StringVar(&flags.server, "server", "", "Import into a running daemon at this base URL instead of the packs file")
	exportCmd.Flags().StringVar(&flags.format, "format", "yaml", "Output format: json or yaml")
	listCmd.Flags().BoolVar(&flags.builtins, "builtins", false, "Include built-in profiles")
	rootCmd.AddCommand(validateCmd, importCmd, exportCmd, listCmd)
}

func openPacks(path string) (*jargon.Catalog, error) {
	catalog := jargon.NewCatalog()
	if _, err := catalog.LoadFile(path); err != nil {
		return nil, err
	}
	return catalog, nil
}

func importLocal(path string, data []byte) (jargon.ImportReport, error) {
	catalog, err := openPacks(path)
	if err != nil {
		return jargon.ImportReport{}, err
	}
	report, err := catalog.ImportPacks(data)
	if err != nil {
		return report, err
	}
	return report, catalog.SaveFile(path)
}

func importRemote(server string, data []byte) (jargon.ImportReport, error) {
	var report jargon.ImportReport
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(strings.TrimRight(server, "/")+"/v1/profiles/import", "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return report, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return report, fmt.Errorf("daemon rejected import: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	err = json.NewDecoder(resp.Body).Decode(&report)
	return report, err
}
