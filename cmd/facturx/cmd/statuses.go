package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx-fr/internal/lifecycle"
	"github.com/rezonia/facturx-fr/internal/model"
)

var statusesCmd = &cobra.Command{
	Use:   "statuses",
	Short: "List the regulatory lifecycle statuses",
	Long: `List every lifecycle status with its French label, its category
(mandatory statuses must be reported to the tax authority), the party
that produces it, and the transitions it allows.

Examples:
  facturx statuses
  facturx statuses -f json`,
	RunE: runStatuses,
}

func init() {
	rootCmd.AddCommand(statusesCmd)
}

// statusRow is one lifecycle status in CLI output
type statusRow struct {
	Code           int    `json:"code"`
	Label          string `json:"label"`
	Category       string `json:"category"`
	Producer       string `json:"producer"`
	Terminal       bool   `json:"terminal"`
	ReasonRequired bool   `json:"reason_required,omitempty"`
	Transitions    []int  `json:"transitions"`
}

func newStatusRow(st model.InvoiceStatus) statusRow {
	category := string(lifecycle.CategoryRecommended)
	if lifecycle.IsMandatory(st) {
		category = string(lifecycle.CategoryMandatory)
	}

	next := lifecycle.Transitions(st)
	codes := make([]int, 0, len(next))
	for _, n := range next {
		codes = append(codes, int(n))
	}

	return statusRow{
		Code:           int(st),
		Label:          st.Label(),
		Category:       category,
		Producer:       string(lifecycle.DefaultProducer(st)),
		Terminal:       lifecycle.IsTerminal(st),
		ReasonRequired: lifecycle.RequiresReason(st),
		Transitions:    codes,
	}
}

func runStatuses(cmd *cobra.Command, args []string) error {
	rows := make([]statusRow, 0, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		rows = append(rows, newStatusRow(st))
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tLABEL\tCATEGORY\tPRODUCER\tTERMINAL\tNEXT")
	fmt.Fprintln(tw, "----\t-----\t--------\t--------\t--------\t----")

	for _, row := range rows {
		terminal := ""
		if row.Terminal {
			terminal = "yes"
		}
		next := make([]string, 0, len(row.Transitions))
		for _, code := range row.Transitions {
			next = append(next, strconv.Itoa(code))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			row.Code, row.Label, row.Category, row.Producer,
			terminal, strings.Join(next, ","))
	}

	return tw.Flush()
}
