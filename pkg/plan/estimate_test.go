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

package plan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/joinorder/pkg/util"
)

func TestEstimateRows(t *testing.T) {
	kases := []struct {
		sql  string
		rows float64
	}{
		{"select * from nation", 25},
		{"select * from nation, region", 125},
		{"select * from nation n, region r where n.n_regionkey = r.r_regionkey", 25},
		{"select * from nation n where n.n_name = 'FRANCE'", 1},
		{"select * from nation n where 'FRANCE' = n.n_name", 1},
		{"select * from nation n where n.n_nationkey < 10", 5},
		{"select * from nation n where 1 = 1", 5},
		{"select * from customer c join orders o on c.c_custkey = o.o_custkey", 150000 * 1500000 / 150000.0},
	}
	for _, kase := range kases {
		memo, root := bindSQL(t, TpchCatalog(), kase.sql)
		est := NewCardinalityEstimator(memo)
		rows, err := est.EstimateRows(root.Id)
		require.NoError(t, err)
		assert.InDelta(t, kase.rows, rows, 1e-6, kase.sql)
	}
}

func TestEstimateRowsIdempotent(t *testing.T) {
	memo, root := bindSQL(t, TpchCatalog(),
		"select * from lineitem l, orders o, customer c where l.l_orderkey = o.o_orderkey and o.o_custkey = c.c_custkey")
	est := NewCardinalityEstimator(memo)
	first, err := est.EstimateRows(root.Id)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := est.EstimateRows(root.Id)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	_, err = est.EstimateRows(1000)
	assert.Error(t, err)
}

func TestEstimateRowsFault(t *testing.T) {
	boom := errors.New("boom")
	util.Open(util.FAULTS_SCOPE_OPTIMIZE)
	defer util.Close(util.FAULTS_SCOPE_OPTIMIZE)
	util.Register(util.FAULTS_SCOPE_OPTIMIZE, util.FaultEstimateRows, nil, func([]string) error {
		return boom
	})

	memo, root := bindSQL(t, TpchCatalog(), "select * from nation")
	_, err := NewCardinalityEstimator(memo).EstimateRows(root.Id)
	assert.Equal(t, boom, err)
}
