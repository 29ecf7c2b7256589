/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"fmt"
	"path/filepath"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scoir/trustflow/pkg/framework"
)

var logger = log.New("trustflow/config")

const (
	defaultAMQP        = "trustflow-amqp-config"
	defaultWalletStore = "trustflow-wallet-store-config"
	defaultLedger      = "trustflow-ledger-config"
)

// Option configures the config...
type Option func(opts *vpr)

// WithFile merges file instead of the default config of the section
func WithFile(file string) Option {
	return func(opts *vpr) {
		opts.file = file
	}
}

type ViperConfigProvider struct {
	DefaultConfigName string
}

type vpr struct {
	*viper.Viper
	file string
}

func (r *ViperConfigProvider) Load(file string) Config {
	config := &vpr{Viper: viper.New()}

	if file != "" {
		config.SetConfigFile(file)
		config.AddConfigPath(filepath.Dir(file))
	} else {
		config.SetConfigType("yaml")
		config.AddConfigPath("/etc/trustflow/")
		config.AddConfigPath("./deploy/")
		config.SetConfigName(r.DefaultConfigName)
	}

	config.SetEnvPrefix("TRUSTFLOW")
	config.AutomaticEnv()

	err := config.BindPFlags(pflag.CommandLine)
	if err != nil {
		logger.Fatalf("failed to bind flags: %v", err)
	}

	err = config.ReadInConfig()
	if err != nil {
		logger.Fatalf("failed to read config %s: %v", config.ConfigFileUsed(), err)
	}

	return config
}

func (r *vpr) WithAMQP(opts ...Option) Config {
	return r.with(defaultAMQP, opts)
}

func (r *vpr) WithWalletStore(opts ...Option) Config {
	return r.with(defaultWalletStore, opts)
}

func (r *vpr) WithLedger(opts ...Option) Config {
	return r.with(defaultLedger, opts)
}

// with merges an explicit file, which must exist, or the section's default file, which may not
func (r *vpr) with(defawlt string, opts []Option) Config {
	r.file = ""
	for _, opt := range opts {
		opt(r)
	}

	if r.file != "" {
		r.SetConfigFile(r.file)
		err := r.MergeInConfig()
		if err != nil {
			logger.Fatalf("failed to merge %s: %v", r.file, err)
		}
		return r
	}

	r.SetConfigName(defawlt)
	err := r.MergeInConfig()
	if err != nil {
		logger.Warnf("no %s merged: %v", defawlt, err)
	}

	return r
}

func (r *vpr) AMQPAddress() string {
	amqpUser := r.GetString("amqp.user")
	amqpPwd := r.GetString("amqp.password")
	amqpHost := r.GetString("amqp.host")
	amqpPort := r.GetInt("amqp.port")
	amqpVHost := r.GetString("amqp.vhost")

	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", amqpUser, amqpPwd, amqpHost, amqpPort, amqpVHost)
}

func (r *vpr) AMQPConfig() (*framework.AMQPConfig, error) {
	config := &framework.AMQPConfig{}

	err := r.UnmarshalKey("amqp", config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (r *vpr) WalletStore() (*framework.WalletStoreConfig, error) {
	wsc := &framework.WalletStoreConfig{}

	err := r.UnmarshalKey("walletstore", wsc)
	if err != nil {
		return nil, err
	}

	return wsc, nil
}

func (r *vpr) Ledger() (*framework.LedgerConfig, error) {
	lc := &framework.LedgerConfig{}

	err := r.UnmarshalKey("ledger", lc)
	if err != nil {
		return nil, err
	}

	return lc, nil
}

// GetString uses Get because recursion
func (r *vpr) GetString(s string) string {
	ret, _ := r.Get(s).(string)

	return ret
}

// GetInt uses Get because same recursion
func (r *vpr) GetInt(s string) int {
	ret, _ := r.Get(s).(int)

	return ret
}

func (r *vpr) GetBool(s string) bool {
	ret, _ := r.Get(s).(bool)

	return ret
}

func (r *vpr) Endpoint(key string) (*framework.Endpoint, error) {
	ep := &framework.Endpoint{}

	err := r.UnmarshalKey(key, ep)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load key "+key)
	}

	return ep, nil
}

func (r *vpr) LogLevel() string {
	lvl := r.GetString("log.level")
	if lvl == "" {
		return "INFO"
	}

	return lvl
}
