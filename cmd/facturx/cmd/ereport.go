package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx-fr/internal/ereporting"
	"github.com/rezonia/facturx-fr/internal/model"
)

var (
	ereportType    string
	ereportCountry string
	ereportSiren   string
	ereportRegime  string
	ereportAfter   string
)

var ereportCmd = &cobra.Command{
	Use:   "ereport",
	Short: "Prepare e-reporting submissions",
	Long: `Prepare e-reporting data for the transactions that fall outside the
B2B domestic mandate: sales to consumers and cross-border trade.`,
}

var ereportTransactionCmd = &cobra.Command{
	Use:   "transaction [invoice.json]",
	Short: "Build a transaction submission from an invoice",
	Long: `Extract the reportable transaction data from an invoice and wrap it
as an individual submission.

Transaction types:
  b2c_domestic  - Sale to a French consumer
  b2b_intra_eu  - Sale to a business in another EU member state
  b2b_extra_eu  - Export outside the EU

International types require --country with the buyer's country.

Examples:
  facturx ereport transaction invoice.json --type b2c_domestic
  facturx ereport transaction invoice.json --type b2b_intra_eu --country DE`,
	Args: cobra.ExactArgs(1),
	RunE: runEReportTransaction,
}

var ereportScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the transmission calendar for a VAT regime",
	Long: `Show how often a VAT regime must transmit e-reporting data and the
next deadlines after a given date.

Regimes:
  real_normal_monthly    - Régime réel normal, monthly VAT returns
  real_normal_quarterly  - Régime réel normal, quarterly VAT returns
  simplified_real        - Régime simplifié
  franchise              - Franchise en base (no payment data owed)

Examples:
  facturx ereport schedule --regime real_normal_monthly
  facturx ereport schedule --regime franchise --after 2026-09-15`,
	RunE: runEReportSchedule,
}

func init() {
	rootCmd.AddCommand(ereportCmd)
	ereportCmd.AddCommand(ereportTransactionCmd)
	ereportCmd.AddCommand(ereportScheduleCmd)

	ereportTransactionCmd.Flags().StringVar(&ereportType, "type", "", "Transaction type (b2c_domestic, b2b_intra_eu, b2b_extra_eu)")
	ereportTransactionCmd.Flags().StringVar(&ereportCountry, "country", "", "Buyer country code for international transactions")
	ereportTransactionCmd.Flags().StringVar(&ereportSiren, "siren", "", "Reporting SIREN (default: the invoice seller's)")
	ereportTransactionCmd.Flags().StringVar(&ereportRegime, "regime", string(model.RegimeNormalMonthly), "Seller VAT regime")
	_ = ereportTransactionCmd.MarkFlagRequired("type")

	ereportScheduleCmd.Flags().StringVar(&ereportRegime, "regime", string(model.RegimeNormalMonthly), "Seller VAT regime")
	ereportScheduleCmd.Flags().StringVar(&ereportAfter, "after", "", "Reference date for the deadlines (YYYY-MM-DD, default: today)")
}

func runEReportTransaction(cmd *cobra.Command, args []string) error {
	inv, err := loadInvoice(args[0])
	if err != nil {
		return err
	}

	siren := ereportSiren
	if siren == "" {
		siren = inv.Seller.Siren
	}

	reporter, err := ereporting.NewReporter(siren, model.VATRegime(strings.ToLower(ereportRegime)))
	if err != nil {
		return err
	}

	tx, err := reporter.TransactionFromInvoice(inv, model.TransactionType(ereportType), strings.ToUpper(ereportCountry))
	if err != nil {
		return err
	}

	sub, err := reporter.PrepareTransaction(tx)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(sub)
	}

	fmt.Printf("Submission: %s\n", sub.ID)
	fmt.Printf("Invoice:    %s\n", tx.InvoiceNumber)
	fmt.Printf("Seller:     %s\n", tx.SellerSiren)
	fmt.Printf("Type:       %s\n", tx.Type)
	fmt.Printf("Net:        %s %s\n", tx.TotalExclTax.StringFixed(2), inv.Currency)
	fmt.Printf("VAT:        %s %s\n", tx.VATAmount.StringFixed(2), inv.Currency)
	return nil
}

func runEReportSchedule(cmd *cobra.Command, args []string) error {
	regime := model.VATRegime(strings.ToLower(ereportRegime))
	if !regime.Valid() {
		return fmt.Errorf("unknown VAT regime %q", ereportRegime)
	}

	after := time.Now().UTC()
	if ereportAfter != "" {
		parsed, err := time.Parse("2006-01-02", ereportAfter)
		if err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", ereportAfter)
		}
		after = parsed
	}

	sched := ereporting.ScheduleFor(regime)
	nextTx := ereporting.NextTransactionDeadline(regime, after)
	nextPay, owesPayment := ereporting.NextPaymentDeadline(regime, after)

	if outputFormat == "json" {
		out := struct {
			ereporting.Schedule
			NextTransactionDeadline string `json:"next_transaction_deadline"`
			NextPaymentDeadline     string `json:"next_payment_deadline,omitempty"`
		}{Schedule: sched, NextTransactionDeadline: nextTx.Format("2006-01-02")}
		if owesPayment {
			out.NextPaymentDeadline = nextPay.Format("2006-01-02")
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	fmt.Printf("Regime:        %s\n", sched.Regime)
	fmt.Printf("Transactions:  %s, next deadline %s\n", sched.TransactionFrequency, nextTx.Format("2006-01-02"))
	if owesPayment {
		fmt.Printf("Payment data:  %s, next deadline %s\n", sched.PaymentFrequency, nextPay.Format("2006-01-02"))
	} else {
		fmt.Println("Payment data:  not owed under this regime")
	}
	return nil
}
