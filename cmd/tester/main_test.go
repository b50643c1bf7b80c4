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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/joinorder/pkg/plan"
	"github.com/daviszhen/joinorder/pkg/util"
)

func withConfig(t *testing.T, cfg *util.Config) {
	old := testerCfg
	testerCfg = cfg
	t.Cleanup(func() {
		testerCfg = old
	})
}

func TestOrderQuery(t *testing.T) {
	cfg := util.DefaultConfig()
	cfg.JoinOrder.Strategy = "greedy"
	cfg.Debug.PrintPlan = true
	cfg.Debug.PrintGraph = true
	withConfig(t, cfg)

	out, err := orderQuery(context.Background(), plan.TpchCatalog(),
		"select * from nation n, region r where n.n_regionkey = r.r_regionkey")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: greedy")
	assert.Contains(t, out, "JoinOrder:")
	assert.Contains(t, out, "Scan region r")

	_, err = orderQuery(context.Background(), plan.TpchCatalog(), "select * from nosuch")
	assert.Error(t, err)

	cfg.JoinOrder.Strategy = "bogus"
	_, err = orderQuery(context.Background(), plan.TpchCatalog(), "select * from nation")
	assert.Error(t, err)
}

func TestRunBatch(t *testing.T) {
	cfg := util.DefaultConfig()
	cfg.Debug.Parallel = 2
	withConfig(t, cfg)

	dir := t.TempDir()
	queries := map[string]string{
		"a.sql": "select * from nation n, region r where n.n_regionkey = r.r_regionkey",
		"b.sql": "select * from supplier s join nation n on s.s_nationkey = n.n_nationkey",
		"c.txt": "not a query",
	}
	for name, query := range queries {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(query), 0o644))
	}
	require.NoError(t, runBatch(context.Background(), plan.TpchCatalog(), dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.sql"), []byte("select * from"), 0o644))
	err := runBatch(context.Background(), plan.TpchCatalog(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "d.sql")
}
