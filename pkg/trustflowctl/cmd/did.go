/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/scoir/trustflow/pkg/did"
)

var seed string

var didCmd = &cobra.Command{
	Use:   "did",
	Short: "Prints the DID and verkey derived from a seed",
	Long:  `Prints the DID and verkey derived from a seed, or from a random key when no seed is given`,
	RunE:  createDID,
}

func init() {
	rootCmd.AddCommand(didCmd)
	didCmd.Flags().StringVar(&seed, "seed", "", "32 character, base64 or hex seed")
}

func createDID(cmd *cobra.Command, _ []string) error {
	d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Seed: seed, Cid: true})
	if err != nil {
		return err
	}

	cmd.Println("DID:   ", d.DIDVal.DID)
	cmd.Println("Verkey:", kp.Verkey())
	return nil
}
