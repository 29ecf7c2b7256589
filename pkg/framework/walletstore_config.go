/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"github.com/hyperledger/aries-framework-go/pkg/storage"
	couchdbstore "github.com/hyperledger/aries-framework-go/pkg/storage/couchdb"
	"github.com/hyperledger/aries-framework-go/pkg/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/pkg/storage/mem"
	"github.com/hyperledger/aries-framework-go/pkg/storage/mysql"
	"github.com/pkg/errors"
	mongodbstore "github.com/scoir/aries-storage-mongo/pkg"
)

// WalletStoreConfig selects the storage that backs every wallet
type WalletStoreConfig struct {
	Database string `mapstructure:"database"`
	Path     string `mapstructure:"path"`
	URL      string `mapstructure:"url"`
	Prefix   string `mapstructure:"prefix"`
}

func (r *WalletStoreConfig) StorageProvider() (storage.Provider, error) {
	var sp storage.Provider
	var err error

	switch r.Database {
	case "mem":
		sp = mem.NewProvider()
	case "leveldb":
		if r.Path == "" {
			return nil, errors.New("leveldb wallet store needs a path")
		}
		sp = leveldb.NewProvider(r.Path)
	case "mongodb":
		sp = mongodbstore.NewProvider(r.URL, mongodbstore.WithDBPrefix(r.prefix()))
	case "mysql":
		sp, err = mysql.NewProvider(r.URL)
	case "couchdb":
		sp, err = couchdbstore.NewProvider(r.URL)
	default:
		return nil, errors.New("no wallet store configuration was provided")
	}

	if err != nil {
		return nil, errors.Wrap(err, "unable to create wallet store based on config")
	}

	return sp, nil
}

func (r *WalletStoreConfig) prefix() string {
	if r.Prefix == "" {
		return "trustflow"
	}
	return r.Prefix
}
