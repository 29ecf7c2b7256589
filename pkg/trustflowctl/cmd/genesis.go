/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/trustflow/pkg/did"
	"github.com/scoir/trustflow/pkg/ledger"
	"github.com/scoir/trustflow/pkg/ledger/pool"
	"github.com/scoir/trustflow/pkg/scenario"
)

var (
	trusteeSeeds  []string
	stewardSeeds  []string
	genesisOutput string
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Writes a genesis file for the in-process pool",
	Long:  `Writes a genesis file naming the trustee and steward NYMs the in-process pool starts with`,
	RunE:  writeGenesis,
}

func init() {
	rootCmd.AddCommand(genesisCmd)
	genesisCmd.Flags().StringSliceVar(&trusteeSeeds, "trustee-seed", []string{"000000000000000000000000Trustee1"}, "trustee seeds")
	genesisCmd.Flags().StringSliceVar(&stewardSeeds, "steward-seed", []string{scenario.StewardSeed}, "steward seeds")
	genesisCmd.Flags().StringVarP(&genesisOutput, "output", "o", "genesis.txn", "genesis file to write")
}

func writeGenesis(cmd *cobra.Command, _ []string) error {
	var txns []*pool.GenesisTxn

	add := func(seeds []string, role ledger.Role) error {
		for _, s := range seeds {
			d, kp, err := did.CreateMyDid(&did.MyDIDInfo{Seed: s, Cid: true})
			if err != nil {
				return errors.Wrapf(err, "invalid %s seed", role)
			}
			txns = append(txns, pool.GenesisNym(uint32(len(txns)+1), d.DIDVal.DID, kp.Verkey(), role))
		}
		return nil
	}

	if err := add(trusteeSeeds, ledger.RoleTrustee); err != nil {
		return err
	}
	if err := add(stewardSeeds, ledger.RoleSteward); err != nil {
		return err
	}

	f, err := os.Create(expand(genesisOutput))
	if err != nil {
		return errors.Wrap(err, "unable to create genesis file")
	}
	defer func() { _ = f.Close() }()

	err = pool.WriteGenesis(f, txns...)
	if err != nil {
		return err
	}

	cmd.Printf("wrote %d genesis nyms to %s\n", len(txns), genesisOutput)
	return nil
}
