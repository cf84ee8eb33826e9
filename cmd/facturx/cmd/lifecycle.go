package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx-fr/internal/lifecycle"
	"github.com/rezonia/facturx-fr/internal/model"
)

var (
	cdarStatus     int
	cdarInvoiceRef string
	cdarSender     string
	cdarSenderRole string
	cdarRecipient  string
	cdarReason     string
	cdarReasonCode string
	cdarOutput     string
)

var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Inspect the invoice lifecycle and build acknowledgements",
	Long: `Work with the regulatory invoice lifecycle.

Subcommands list allowed transitions, check whether a transition is
permitted, and build or read CDAR acknowledgement messages.`,
}

var lifecycleTransitionsCmd = &cobra.Command{
	Use:   "transitions [status-code]",
	Short: "List the transitions allowed from a status",
	Args:  cobra.ExactArgs(1),
	RunE:  runLifecycleTransitions,
}

var lifecycleCheckCmd = &cobra.Command{
	Use:   "check [from] [to]",
	Short: "Check whether a status transition is allowed",
	Long: `Check whether the lifecycle permits moving between two statuses.

The command exits non-zero when the transition is not allowed, so it
can gate scripted status updates.

Examples:
  facturx lifecycle check 204 205
  facturx lifecycle check 205 210`,
	Args: cobra.ExactArgs(2),
	RunE: runLifecycleCheck,
}

var lifecycleCdarCmd = &cobra.Command{
	Use:   "cdar",
	Short: "Build a CDAR acknowledgement message",
	Long: `Build a CrossDomainAcknowledgementAndResponse message announcing a
lifecycle status for an invoice.

Refusals (status 210) require a reason.

Examples:
  facturx lifecycle cdar --status 204 --invoice-ref FA-2026-042 --sender 123456789
  facturx lifecycle cdar --status 210 --invoice-ref FA-2026-042 --sender 987654321 \
      --reason "Montant errone" --reason-code MNT -o refus.xml`,
	RunE: runLifecycleCdar,
}

var lifecycleReadCmd = &cobra.Command{
	Use:   "read [cdar.xml]",
	Short: "Read a CDAR acknowledgement message",
	Args:  cobra.ExactArgs(1),
	RunE:  runLifecycleRead,
}

func init() {
	rootCmd.AddCommand(lifecycleCmd)
	lifecycleCmd.AddCommand(lifecycleTransitionsCmd)
	lifecycleCmd.AddCommand(lifecycleCheckCmd)
	lifecycleCmd.AddCommand(lifecycleCdarCmd)
	lifecycleCmd.AddCommand(lifecycleReadCmd)

	lifecycleCdarCmd.Flags().IntVar(&cdarStatus, "status", 0, "Lifecycle status code to announce")
	lifecycleCdarCmd.Flags().StringVar(&cdarInvoiceRef, "invoice-ref", "", "Number of the invoice being acknowledged")
	lifecycleCdarCmd.Flags().StringVar(&cdarSender, "sender", "", "SIREN of the party producing the status")
	lifecycleCdarCmd.Flags().StringVar(&cdarSenderRole, "sender-role", lifecycle.RoleBuyer, "Role code of the sender (BY, SE, DL, WK, DFH)")
	lifecycleCdarCmd.Flags().StringVar(&cdarRecipient, "recipient", "", "SIREN of the receiving party (optional)")
	lifecycleCdarCmd.Flags().StringVar(&cdarReason, "reason", "", "Reason for the status (required for refusals)")
	lifecycleCdarCmd.Flags().StringVar(&cdarReasonCode, "reason-code", "", "Machine-readable reason code")
	lifecycleCdarCmd.Flags().StringVarP(&cdarOutput, "output", "o", "", "Output file (default: stdout)")
	_ = lifecycleCdarCmd.MarkFlagRequired("status")
	_ = lifecycleCdarCmd.MarkFlagRequired("invoice-ref")
	_ = lifecycleCdarCmd.MarkFlagRequired("sender")
}

func parseStatusArg(arg string) (model.InvoiceStatus, error) {
	code, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("status code must be numeric, got %q", arg)
	}
	st := model.InvoiceStatus(code)
	if !st.Valid() {
		return 0, fmt.Errorf("unknown status code %d", code)
	}
	return st, nil
}

func runLifecycleTransitions(cmd *cobra.Command, args []string) error {
	st, err := parseStatusArg(args[0])
	if err != nil {
		return err
	}

	next := lifecycle.Transitions(st)

	if outputFormat == "json" {
		targets := make([]statusRow, 0, len(next))
		for _, n := range next {
			targets = append(targets, newStatusRow(n))
		}
		out := struct {
			Code        int         `json:"code"`
			Label       string      `json:"label"`
			Terminal    bool        `json:"terminal"`
			Transitions []statusRow `json:"transitions"`
		}{int(st), st.Label(), lifecycle.IsTerminal(st), targets}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	fmt.Printf("%d %s\n", int(st), st.Label())
	if lifecycle.IsTerminal(st) {
		fmt.Println("  terminal status, no transitions")
		return nil
	}
	for _, n := range next {
		fmt.Printf("  → %d %s\n", int(n), n.Label())
	}
	return nil
}

func runLifecycleCheck(cmd *cobra.Command, args []string) error {
	from, err := parseStatusArg(args[0])
	if err != nil {
		return err
	}
	to, err := parseStatusArg(args[1])
	if err != nil {
		return err
	}

	if !lifecycle.CanTransition(from, to) {
		return fmt.Errorf("transition %d (%s) → %d (%s) is not allowed",
			int(from), from.Label(), int(to), to.Label())
	}

	fmt.Printf("✓ %d (%s) → %d (%s)\n", int(from), from.Label(), int(to), to.Label())
	return nil
}

func runLifecycleCdar(cmd *cobra.Command, args []string) error {
	st := model.InvoiceStatus(cdarStatus)
	if !st.Valid() {
		return fmt.Errorf("unknown status code %d", cdarStatus)
	}

	msg := lifecycle.NewMessage(st, cdarInvoiceRef, lifecycle.Party{
		Identifier: cdarSender,
		SchemeID:   "0002",
		Role:       cdarSenderRole,
	})
	msg.Reason = cdarReason
	msg.ReasonCode = cdarReasonCode
	if cdarRecipient != "" {
		msg.Recipients = append(msg.Recipients, lifecycle.Party{
			Identifier: cdarRecipient,
			SchemeID:   "0002",
		})
	}

	data, err := lifecycle.GenerateCDAR(msg)
	if err != nil {
		return err
	}

	return writeOutput(cdarOutput, data)
}

func runLifecycleRead(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	msg, err := lifecycle.ParseCDAR(data)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(msg)
	}

	fmt.Printf("Invoice: %s\n", msg.InvoiceReference)
	fmt.Printf("Status:  %d %s\n", int(msg.Status), msg.Status.Label())
	fmt.Printf("Issued:  %s\n", msg.IssueTime.Format("2006-01-02"))
	fmt.Printf("Sender:  %s (%s)\n", msg.Sender.Identifier, msg.Sender.Role)
	if msg.Reason != "" {
		fmt.Printf("Reason:  %s\n", msg.Reason)
	}
	return nil
}
