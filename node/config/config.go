// config.go - hoprmix node configuration.
// Copyright (C) 2017  Yawning Angel and David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config provides the hoprmix node configuration.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"net/netip"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/net/idna"

	"github.com/hoprnet/hoprmix/core/crypto/keyshares"
	"github.com/hoprnet/hoprmix/core/por"
	"github.com/hoprnet/hoprmix/core/sphinx/geo"
)

const (
	defaultLogLevel                = "NOTICE"
	defaultUserPayloadLength       = 500
	defaultPricePerPacket          = "10000000000000000" // 0.01 in 18 decimals.
	defaultWinProb                 = 1.0
	defaultReplayFilterLog2Entries = 20
	defaultReplayFilterFPRate      = 0.001
	defaultAckTimeout              = 60 * 1000 // 60 sec.
	defaultTicketDB                = "tickets.db"
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Node is the hoprmix node configuration.
type Node struct {
	// Identifier is the human readable identifier for the node.
	Identifier string

	// DataDir is the absolute path to the node's state files.
	DataDir string

	// MetricsAddress is the address/port to bind the prometheus metrics endpoint to.
	MetricsAddress string
}

func (nCfg *Node) validate() error {
	if nCfg.Identifier == "" {
		return errors.New("config: Node: Identifier is not set")
	}
	if !filepath.IsAbs(nCfg.DataDir) {
		return fmt.Errorf("config: Node: DataDir '%v' is not an absolute path", nCfg.DataDir)
	}
	if nCfg.MetricsAddress != "" {
		if _, err := netip.ParseAddrPort(nCfg.MetricsAddress); err != nil {
			return fmt.Errorf("config: Node: MetricsAddress '%v' is invalid: %v", nCfg.MetricsAddress, err)
		}
	}
	return nil
}

// Logging is the hoprmix node logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl // Force uppercase.
	return nil
}

// Sphinx is the packet format configuration. The relayer data size is fixed
// by the Proof-of-Relay string and is not configurable.
type Sphinx struct {
	// MaxHops is the number of hops, relays and destination, a header has
	// room for.
	MaxHops int

	// UserPayloadLength is the number of message bytes a packet carries.
	UserPayloadLength int

	// LastHopDataLength is the size of the data for the destination.
	LastHopDataLength int
}

func (sCfg *Sphinx) applyDefaults() {
	if sCfg.MaxHops <= 0 {
		sCfg.MaxHops = geo.DefaultMaxHops
	}
	if sCfg.UserPayloadLength <= 0 {
		sCfg.UserPayloadLength = defaultUserPayloadLength
	}
}

func (sCfg *Sphinx) validate() error {
	if sCfg.MaxHops > keyshares.MaxPathLength {
		return fmt.Errorf("config: Sphinx: MaxHops %d exceeds %d", sCfg.MaxHops, keyshares.MaxPathLength)
	}
	if sCfg.LastHopDataLength < 0 {
		return errors.New("config: Sphinx: LastHopDataLength is negative")
	}
	if err := sCfg.Geometry().Validate(); err != nil {
		return fmt.Errorf("config: Sphinx: %v", err)
	}
	return nil
}

// Geometry returns the packet geometry described by the block.
func (sCfg *Sphinx) Geometry() *geo.Geometry {
	return geo.GeometryFromUserPayloadLength(sCfg.UserPayloadLength, sCfg.MaxHops, por.ProofOfRelayStringLength, sCfg.LastHopDataLength)
}

// Tickets is the ticket issuing configuration.
type Tickets struct {
	// PricePerPacket is the amount, in the token's base unit, paid to each
	// relay, as a decimal string.
	PricePerPacket string

	// WinProb is the winning probability of issued tickets, in (0, 1].
	WinProb float64

	// AckTimeout is the time in milliseconds after which an unacknowledged
	// ticket is dropped.
	AckTimeout int
}

func (tCfg *Tickets) applyDefaults() {
	if tCfg.PricePerPacket == "" {
		tCfg.PricePerPacket = defaultPricePerPacket
	}
	if tCfg.WinProb == 0 {
		tCfg.WinProb = defaultWinProb
	}
	if tCfg.AckTimeout <= 0 {
		tCfg.AckTimeout = defaultAckTimeout
	}
}

func (tCfg *Tickets) validate() error {
	if _, err := tCfg.Price(); err != nil {
		return err
	}
	if tCfg.WinProb <= 0 || tCfg.WinProb > 1 {
		return fmt.Errorf("config: Tickets: WinProb %v is not in (0, 1]", tCfg.WinProb)
	}
	return nil
}

// Price returns PricePerPacket as an integer.
func (tCfg *Tickets) Price() (*big.Int, error) {
	p, ok := new(big.Int).SetString(tCfg.PricePerPacket, 10)
	if !ok || p.Sign() < 0 {
		return nil, fmt.Errorf("config: Tickets: PricePerPacket '%v' is invalid", tCfg.PricePerPacket)
	}
	return p, nil
}

// Debug is the hoprmix node debug configuration.
type Debug struct {
	// NumCryptoWorkers specifies the number of worker instances to use for
	// inbound packet processing.
	NumCryptoWorkers int

	// ReplayFilterLog2Entries is the base 2 logarithm of the replay filter
	// size in bits.
	ReplayFilterLog2Entries int

	// ReplayFilterFalsePositiveRate is the tolerated false positive rate of
	// the replay filter.
	ReplayFilterFalsePositiveRate float64
}

func (dCfg *Debug) applyDefaults() {
	if dCfg.NumCryptoWorkers <= 0 {
		// Pick a sane default for the number of workers.
		dCfg.NumCryptoWorkers = runtime.NumCPU()
	}
	if dCfg.ReplayFilterLog2Entries <= 0 {
		dCfg.ReplayFilterLog2Entries = defaultReplayFilterLog2Entries
	}
	if dCfg.ReplayFilterFalsePositiveRate <= 0 || dCfg.ReplayFilterFalsePositiveRate >= 1 {
		dCfg.ReplayFilterFalsePositiveRate = defaultReplayFilterFPRate
	}
}

// Config is the top level hoprmix node configuration.
type Config struct {
	Node    *Node
	Logging *Logging
	Sphinx  *Sphinx
	Tickets *Tickets

	Debug *Debug
}

// TicketDBPath returns the path of the ticket store.
func (cfg *Config) TicketDBPath() string {
	return filepath.Join(cfg.Node.DataDir, defaultTicketDB)
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration.  Most people should call one of the Load variants
// instead.
func (cfg *Config) FixupAndValidate() error {
	// The Node section is mandatory, everything else is optional.
	if cfg.Node == nil {
		return errors.New("config: No Node block was present")
	}
	if cfg.Logging == nil {
		l := defaultLogging
		cfg.Logging = &l
	}
	if cfg.Sphinx == nil {
		cfg.Sphinx = &Sphinx{}
	}
	if cfg.Tickets == nil {
		cfg.Tickets = &Tickets{}
	}
	if cfg.Debug == nil {
		cfg.Debug = &Debug{}
	}
	cfg.Sphinx.applyDefaults()
	cfg.Tickets.applyDefaults()
	cfg.Debug.applyDefaults()

	// Perform basic validation.
	if err := cfg.Node.validate(); err != nil {
		return err
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}
	if err := cfg.Sphinx.validate(); err != nil {
		return err
	}
	if err := cfg.Tickets.validate(); err != nil {
		return err
	}

	var err error
	cfg.Node.Identifier, err = idna.Lookup.ToASCII(cfg.Node.Identifier)
	if err != nil {
		return fmt.Errorf("config: Failed to normalize Identifier: %v", err)
	}
	return nil
}

// Store writes a CBOR snapshot of the config to fileName on disk.
func Store(cfg *Config, fileName string) error {
	serialized, err := cbor.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(fileName, serialized, 0600)
}

// LoadSnapshot reads a config written by Store.
func LoadSnapshot(fileName string) (*Config, error) {
	b, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	cfg := new(Config)
	if err := cbor.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: No nil buffer as config file")
	}

	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
