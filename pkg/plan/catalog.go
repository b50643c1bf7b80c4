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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	treemap "github.com/liyue201/gostl/ds/map"
	pqLocal "github.com/xitongsys/parquet-go-source/local"
	pqReader "github.com/xitongsys/parquet-go/reader"
	"go.uber.org/zap"

	"github.com/daviszhen/joinorder/pkg/util"
)

type BaseStats struct {
	DistinctCount float64
}

type Stats struct {
	RowCount float64
	ColStats []*BaseStats
}

func (s *Stats) String() string {
	if s == nil {
		return ""
	}
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("rowcount %v\n", s.RowCount))
	for i, stat := range s.ColStats {
		sb.WriteString(fmt.Sprintf("col %v ndv %v\n", i, stat.DistinctCount))
	}
	return sb.String()
}

type CatalogTable struct {
	Table      string
	Columns    []string
	Column2Idx map[string]int
	Stats      *Stats
}

// ndv returns the distinct count of column idx, at least 1.
func (t *CatalogTable) ndv(idx int) float64 {
	if idx < 0 || idx >= len(t.Stats.ColStats) {
		return 1
	}
	return max(t.Stats.ColStats[idx].DistinctCount, 1)
}

type ColumnDef struct {
	Name string  `toml:"name"`
	NDV  float64 `toml:"ndv"`
}

// TableDef describes one table of a catalog file. Rows may be left out when
// Parquet names a file to count them from.
type TableDef struct {
	Name    string      `toml:"name"`
	Rows    float64     `toml:"rows"`
	Parquet string      `toml:"parquet"`
	Columns []ColumnDef `toml:"columns"`
}

type catalogDef struct {
	Tables []TableDef `toml:"table"`
}

// Catalog holds table statistics by name.
type Catalog struct {
	tables *treemap.Map[string, *CatalogTable]
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables: treemap.New[string, *CatalogTable](func(a, b string) int {
			return strings.Compare(a, b)
		}),
	}
}

func (c *Catalog) AddTable(def TableDef) error {
	name := strings.ToLower(def.Name)
	if name == "" {
		return errors.New("table without name")
	}
	if _, err := c.tables.Get(name); err == nil {
		return errors.Newf("duplicate table %s", name)
	}
	if len(def.Columns) == 0 {
		return errors.Newf("table %s has no columns", name)
	}
	if def.Rows < 0 {
		return errors.Newf("table %s has negative row count %v", name, def.Rows)
	}
	tab := &CatalogTable{
		Table:      name,
		Column2Idx: make(map[string]int),
		Stats:      &Stats{RowCount: def.Rows},
	}
	for i, col := range def.Columns {
		colName := strings.ToLower(col.Name)
		if _, has := tab.Column2Idx[colName]; has {
			return errors.Newf("duplicate column %s in table %s", colName, name)
		}
		ndv := col.NDV
		if ndv <= 0 {
			ndv = def.Rows
		}
		tab.Columns = append(tab.Columns, colName)
		tab.Column2Idx[colName] = i
		tab.Stats.ColStats = append(tab.Stats.ColStats, &BaseStats{DistinctCount: ndv})
	}
	c.tables.Insert(name, tab)
	return nil
}

func (c *Catalog) Table(name string) (*CatalogTable, error) {
	tab, err := c.tables.Get(strings.ToLower(name))
	if err != nil {
		return nil, errors.Newf("table %s does not exist", name)
	}
	return tab, nil
}

// TableNames lists the tables in name order.
func (c *Catalog) TableNames() []string {
	ret := make([]string, 0, c.tables.Size())
	for it := c.tables.Begin(); it.IsValid(); it.Next() {
		ret = append(ret, it.Key())
	}
	return ret
}

// LoadCatalog reads a toml catalog file. Relative parquet paths are
// resolved against the directory of the file.
func LoadCatalog(path string) (*Catalog, error) {
	var def catalogDef
	if _, err := toml.DecodeFile(path, &def); err != nil {
		return nil, errors.Wrapf(err, "decode catalog %s", path)
	}
	cat := NewCatalog()
	for _, tab := range def.Tables {
		if tab.Parquet != "" && tab.Rows == 0 {
			file := tab.Parquet
			if !filepath.IsAbs(file) {
				file = filepath.Join(filepath.Dir(path), file)
			}
			rows, err := parquetRowCount(file)
			if err != nil {
				return nil, errors.Wrapf(err, "count rows of table %s", tab.Name)
			}
			tab.Rows = rows
			util.Debug("parquet row count",
				zap.String("table", tab.Name),
				zap.String("file", file),
				zap.Float64("rows", rows))
		}
		if err := cat.AddTable(tab); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func parquetRowCount(path string) (float64, error) {
	if !util.FileIsValid(path) {
		return 0, errors.Newf("parquet file %s does not exist", path)
	}
	file, err := pqLocal.NewLocalFileReader(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	reader, err := pqReader.NewParquetColumnReader(file, 1)
	if err != nil {
		return 0, err
	}
	defer reader.ReadStop()
	return float64(reader.GetNumRows()), nil
}
