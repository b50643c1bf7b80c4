// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package joinorder

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/daviszhen/joinorder/pkg/util"
)

type Strategy int

const (
	StrategyAuto Strategy = iota
	StrategyDP
	StrategyDPv2
	StrategyGreedy
	StrategyMinCard
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyDP:
		return "dp"
	case StrategyDPv2:
		return "dpv2"
	case StrategyGreedy:
		return "greedy"
	case StrategyMinCard:
		return "mincard"
	default:
		panic(fmt.Sprintf("usp strategy %d", s))
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StrategyAuto, nil
	case "dp", "exhaustive":
		return StrategyDP, nil
	case "dpv2", "bushy":
		return StrategyDPv2, nil
	case "greedy":
		return StrategyGreedy, nil
	case "mincard", "mincardinality":
		return StrategyMinCard, nil
	default:
		return StrategyAuto, errors.Newf("unknown join order strategy %q", s)
	}
}

// maxDPComponents bounds the subset enumeration of the DP orderers, which
// walks split masks in a uint64.
const maxDPComponents = 62

type Config struct {
	// DPSizeLimit is the largest component count still ordered by DP.
	DPSizeLimit uint32
	// TopK bounds the ranked full join orders kept by the DP orderers.
	TopK uint32
	// AllowBushy selects DPv2 instead of DP.
	AllowBushy bool
	// MaxDepth bounds the recursion of the exhaustive DP.
	MaxDepth int
	// BushyAlternatives is the number of plans DPv2 keeps per subset.
	BushyAlternatives int
	// DeferCrossProducts enables the greedy rule that postpones cross
	// products while more than one edge is unused.
	DeferCrossProducts bool
}

func DefaultConfig() Config {
	return Config{
		DPSizeLimit:        10,
		TopK:               10,
		MaxDepth:           64,
		BushyAlternatives:  3,
		DeferCrossProducts: true,
	}
}

// ConfigFrom converts the file/flag options of the tools.
func ConfigFrom(opts util.JoinOrderOptions) Config {
	cfg := Config{
		DPSizeLimit:        opts.DPSizeLimit,
		TopK:               opts.TopK,
		AllowBushy:         opts.AllowBushy,
		MaxDepth:           opts.MaxDepth,
		BushyAlternatives:  opts.BushyAlternatives,
		DeferCrossProducts: opts.DeferCrossProducts,
	}
	return cfg.normalize()
}

func (cfg Config) normalize() Config {
	def := DefaultConfig()
	if cfg.TopK == 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.BushyAlternatives <= 0 {
		cfg.BushyAlternatives = def.BushyAlternatives
	}
	if cfg.DPSizeLimit > maxDPComponents {
		cfg.DPSizeLimit = maxDPComponents
	}
	return cfg
}
