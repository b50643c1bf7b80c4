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

package util

type JoinOrderOptions struct {
	// Strategy is one of auto, dp, dpv2, greedy, mincard.
	Strategy           string `toml:"strategy"`
	DPSizeLimit        uint32 `toml:"dpSizeLimit"`
	TopK               uint32 `toml:"topK"`
	AllowBushy         bool   `toml:"allowBushy"`
	MaxDepth           int    `toml:"maxDepth"`
	BushyAlternatives  int    `toml:"bushyAlternatives"`
	DeferCrossProducts bool   `toml:"deferCrossProducts"`
}

type CatalogOptions struct {
	Path string `toml:"path"`
}

type ServerOptions struct {
	Addr string `toml:"addr"`
}

type LogOptions struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type DebugOptions struct {
	PrintPlan  bool `toml:"printPlan"`
	PrintTopK  bool `toml:"printTopK"`
	PrintGraph bool `toml:"printGraph"`
	// Parallel bounds the number of queries ordered at once in batch mode.
	Parallel int `toml:"parallel"`
}

type Config struct {
	JoinOrder JoinOrderOptions `toml:"joinorder"`
	Catalog   CatalogOptions   `toml:"catalog"`
	Server    ServerOptions    `toml:"server"`
	Log       LogOptions       `toml:"log"`
	Debug     DebugOptions     `toml:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		JoinOrder: JoinOrderOptions{
			Strategy:           "auto",
			DPSizeLimit:        10,
			TopK:               10,
			MaxDepth:           64,
			BushyAlternatives:  3,
			DeferCrossProducts: true,
		},
		Server: ServerOptions{Addr: "127.0.0.1:5432"},
		Log:    LogOptions{Level: "info"},
		Debug:  DebugOptions{Parallel: 4},
	}
}
