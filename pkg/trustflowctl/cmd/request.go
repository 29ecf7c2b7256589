/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/trustflow/pkg/ledger"
)

var (
	requestKind   string
	requestFrom   string
	requestParams string
	submit        bool
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Builds a ledger request and optionally submits it",
	Long: `Builds a ledger request from a kind and a JSON object of parameters and prints it.

 With --submit the request is sent unsigned to the configured ledger and the response is
 printed, which suits the GET_NYM, GET_SCHEMA and GET_CLAIM_DEF reads.

 trustflow request --kind GET_NYM --params '{"dest":"Th7MpTaRZVRYnPiabds81Y"}' --submit`,
	RunE: runRequest,
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.Flags().StringVar(&requestKind, "kind", "GET_NYM", "request type name or code")
	requestCmd.Flags().StringVar(&requestFrom, "from", "", "submitter DID")
	requestCmd.Flags().StringVar(&requestParams, "params", "{}", "request parameters as a JSON object")
	requestCmd.Flags().BoolVar(&submit, "submit", false, "submit the request to the configured ledger")
}

func runRequest(cmd *cobra.Command, _ []string) error {
	kind, err := ledger.ParseKind(requestKind)
	if err != nil {
		return err
	}

	params := map[string]interface{}{}
	err = json.Unmarshal([]byte(requestParams), &params)
	if err != nil {
		return errors.Wrap(err, "params must be a JSON object")
	}

	req, err := ledger.Build(kind, requestFrom, params)
	if err != nil {
		return err
	}

	out := interface{}(req)
	if submit {
		client, err := openLedger()
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		out, err = client.Submit(ctx, req)
		if err != nil {
			return err
		}
	}

	d, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to marshal output")
	}

	cmd.Println(string(d))
	return nil
}
