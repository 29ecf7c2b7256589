/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/scoir/trustflow/pkg/config"
)

var logger = log.New("trustflow/ctl")

var cfgFile string

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "trustflow",
	Short: "The trustflow CLI drives identities, credentials and proofs over an Indy style ledger.",
	Long: `The trustflow CLI drives identities, credentials and proofs over an Indy style ledger.

 It onboards identities through a steward, publishes schemas and credential definitions,
 issues credentials and verifies predicate proofs.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.trustflow.yaml)")
}

// initConfig reads the config file, merges the section files next to it and sets the log level
func initConfig() {
	file := cfgFile
	if file == "" {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		file = filepath.Join(home, ".trustflow.yaml")
	}

	if _, err := os.Stat(file); err != nil {
		fmt.Println("unable to read config:", file, err)
		os.Exit(1)
	}

	vp := &config.ViperConfigProvider{DefaultConfigName: "trustflow"}
	cfg = vp.Load(file).WithWalletStore().WithLedger().WithAMQP()

	lvl, err := log.ParseLevel(cfg.LogLevel())
	if err != nil {
		logger.Warnf("unknown log level %s: %v", cfg.LogLevel(), err)
		return
	}
	log.SetLevel("", lvl)
}

// expand resolves a leading ~ in configured paths
func expand(path string) string {
	p, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return p
}
