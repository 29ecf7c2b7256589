/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/scoir/trustflow/pkg/scenario"
)

var (
	average     string
	stewardSeed string
	trusteeSeed string
	flow        string
	keepWallets bool
	timeout     time.Duration
)

const (
	flowGettingStarted = "getting-started"
	flowTranscript     = "transcript"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Runs the getting started workflow against the configured ledger",
	Long: `Runs the getting started workflow against the configured ledger.

 A steward onboards Government, Faber, Acme and Thrift.  Faber issues Alice a transcript,
 Acme verifies it and issues a job certificate, and Thrift verifies both for a loan.

 With --flow transcript a trustee onboards Government as a trustee and Faber and Acme as
 endorsers, and the run stops after Acme checks Alice's transcript.

 The default engine discloses the value behind a predicate such as average >= 4 to the
 verifier.  Build with the ursa tag for CL proofs that keep it hidden.`,
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
	scenarioCmd.Flags().StringVar(&average, "average", "5", "average on Alice's transcript")
	scenarioCmd.Flags().StringVar(&stewardSeed, "steward-seed", scenario.StewardSeed, "seed of the steward DID on the ledger")
	scenarioCmd.Flags().StringVar(&trusteeSeed, "trustee-seed", scenario.TrusteeSeed, "seed of the trustee DID on the ledger")
	scenarioCmd.Flags().StringVar(&flow, "flow", flowGettingStarted, "workflow to run, getting-started or transcript")
	scenarioCmd.Flags().BoolVar(&keepWallets, "keep-wallets", false, "leave the wallets in the wallet store")
	scenarioCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "deadline for the whole run")
}

func runScenario(cmd *cobra.Command, _ []string) error {
	if flow != flowGettingStarted && flow != flowTranscript {
		return errors.Errorf("unknown flow %q", flow)
	}

	serveMetrics()

	client, err := openLedger()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	store, err := walletStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	opts := []scenario.Option{
		scenario.WithAverage(average),
		scenario.WithStewardSeed(stewardSeed),
		scenario.WithTrusteeSeed(trusteeSeed),
	}
	if keepWallets || cfg.GetBool("scenario.keepWallets") {
		opts = append(opts, scenario.KeepWallets())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	runner := scenario.New(client, store, newEngine(), opts...)

	var report *scenario.Report
	if flow == flowTranscript {
		report, err = runner.RunTranscript(ctx)
	} else {
		report, err = runner.Run(ctx)
	}
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report)
	return nil
}

// serveMetrics exposes the ledger submission metrics when a metrics endpoint is configured
func serveMetrics() {
	ep, err := cfg.Endpoint("metrics")
	if err != nil || ep.Port == 0 {
		return
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Infof("serving metrics on %s", ep.Address())
		err := http.ListenAndServe(ep.Address(), mux)
		if err != nil {
			logger.Warnf("metrics server stopped: %v", err)
		}
	}()
}

func printReport(out io.Writer, report *scenario.Report) {
	tab := tabwriter.NewWriter(out, 10, 4, 3, ' ', 0)

	names := make([]string, 0, len(report.Parties))
	for name := range report.Parties {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(tab, "PARTY\tDID")
	for _, name := range names {
		fmt.Fprintf(tab, "%s\t%s\n", name, report.Parties[name])
	}
	fmt.Fprintln(tab)

	fmt.Fprintln(tab, "LEDGER ENTRY\tID")
	fmt.Fprintf(tab, "Transcript schema\t%s\n", report.TranscriptSchemaID)
	fmt.Fprintf(tab, "Job-Certificate schema\t%s\n", report.JobCertificateSchemaID)
	fmt.Fprintf(tab, "Transcript cred def\t%s\n", report.TranscriptCredDefID)
	fmt.Fprintf(tab, "Job-Certificate cred def\t%s\n", report.JobCertificateCredDefID)
	fmt.Fprintln(tab)

	fmt.Fprintln(tab, "PROOF\tVERIFIED")
	printOutcome(tab, "Job-Application", report.JobApplication)
	printOutcome(tab, "Loan-Application-Basic", report.LoanBasic)
	printOutcome(tab, "Loan-Application-KYC", report.LoanKYC)

	_ = tab.Flush()
}

func printOutcome(out io.Writer, name string, o *scenario.Outcome) {
	if o == nil {
		fmt.Fprintf(out, "%s\tnot requested\n", name)
		return
	}

	fmt.Fprintf(out, "%s\t%t\n", name, o.Verified)
}

