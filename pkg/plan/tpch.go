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

// TpchCatalog returns the statistics of tpch at scale factor 1.
func TpchCatalog() *Catalog {
	cat := NewCatalog()
	for _, def := range tpchTables {
		if err := cat.AddTable(def); err != nil {
			panic(err)
		}
	}
	return cat
}

var tpchTables = []TableDef{
	{
		Name: "part",
		Rows: 200000,
		Columns: []ColumnDef{
			{Name: "p_partkey", NDV: 200000},
			{Name: "p_name", NDV: 199997},
			{Name: "p_mfgr", NDV: 5},
			{Name: "p_brand", NDV: 25},
			{Name: "p_type", NDV: 150},
			{Name: "p_size", NDV: 50},
			{Name: "p_container", NDV: 40},
			{Name: "p_retailprice", NDV: 20899},
			{Name: "p_comment", NDV: 131753},
		},
	},
	{
		Name: "supplier",
		Rows: 10000,
		Columns: []ColumnDef{
			{Name: "s_suppkey", NDV: 10000},
			{Name: "s_name", NDV: 10000},
			{Name: "s_address", NDV: 10000},
			{Name: "s_nationkey", NDV: 25},
			{Name: "s_phone", NDV: 10000},
			{Name: "s_acctbal", NDV: 9955},
			{Name: "s_comment", NDV: 10000},
		},
	},
	{
		Name: "partsupp",
		Rows: 800000,
		Columns: []ColumnDef{
			{Name: "ps_partkey", NDV: 200000},
			{Name: "ps_suppkey", NDV: 10000},
			{Name: "ps_availqty", NDV: 9999},
			{Name: "ps_supplycost", NDV: 99865},
			{Name: "ps_comment", NDV: 799124},
		},
	},
	{
		Name: "nation",
		Rows: 25,
		Columns: []ColumnDef{
			{Name: "n_nationkey", NDV: 25},
			{Name: "n_name", NDV: 25},
			{Name: "n_regionkey", NDV: 5},
			{Name: "n_comment", NDV: 25},
		},
	},
	{
		Name: "region",
		Rows: 5,
		Columns: []ColumnDef{
			{Name: "r_regionkey", NDV: 5},
			{Name: "r_name", NDV: 5},
			{Name: "r_comment", NDV: 5},
		},
	},
	{
		Name: "orders",
		Rows: 1500000,
		Columns: []ColumnDef{
			{Name: "o_orderkey", NDV: 1500000},
			{Name: "o_custkey", NDV: 99996},
			{Name: "o_orderstatus", NDV: 3},
			{Name: "o_totalprice", NDV: 1464556},
			{Name: "o_orderdate", NDV: 2406},
			{Name: "o_orderpriority", NDV: 5},
			{Name: "o_clerk", NDV: 1000},
			{Name: "o_shippriority", NDV: 1},
			{Name: "o_comment", NDV: 1482071},
		},
	},
	{
		Name: "lineitem",
		Rows: 6001215,
		Columns: []ColumnDef{
			{Name: "l_orderkey", NDV: 1500000},
			{Name: "l_partkey", NDV: 200000},
			{Name: "l_suppkey", NDV: 10000},
			{Name: "l_linenumber", NDV: 7},
			{Name: "l_quantity", NDV: 50},
			{Name: "l_extendedprice", NDV: 933900},
			{Name: "l_discount", NDV: 11},
			{Name: "l_tax", NDV: 9},
			{Name: "l_returnflag", NDV: 3},
			{Name: "l_linestatus", NDV: 2},
			{Name: "l_shipdate", NDV: 2526},
			{Name: "l_commitdate", NDV: 2466},
			{Name: "l_receiptdate", NDV: 2554},
			{Name: "l_shipinstruct", NDV: 4},
			{Name: "l_shipmode", NDV: 7},
			{Name: "l_comment", NDV: 4580667},
		},
	},
	{
		Name: "customer",
		Rows: 150000,
		Columns: []ColumnDef{
			{Name: "c_custkey", NDV: 150000},
			{Name: "c_name", NDV: 150000},
			{Name: "c_address", NDV: 150000},
			{Name: "c_nationkey", NDV: 25},
			{Name: "c_phone", NDV: 150000},
			{Name: "c_acctbal", NDV: 140187},
			{Name: "c_mktsegment", NDV: 5},
			{Name: "c_comment", NDV: 149968},
		},
	},
}
