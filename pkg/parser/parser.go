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

package parser

import (
	"github.com/cockroachdb/errors"
	pg_query "github.com/pganalyze/pg_query_go/v5"
)

func Parse(s string) ([]*pg_query.RawStmt, error) {
	result, err := pg_query.Parse(s)
	if err != nil {
		return nil, err
	}
	return result.Stmts, nil
}

// ParseSelect parses s, which must hold exactly one SELECT statement.
func ParseSelect(s string) (*pg_query.SelectStmt, error) {
	stmts, err := Parse(s)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	if len(stmts) != 1 {
		return nil, errors.Newf("expected one statement, got %d", len(stmts))
	}
	sel := stmts[0].GetStmt().GetSelectStmt()
	if sel == nil {
		return nil, errors.Newf("not a select statement: %T", stmts[0].GetStmt().GetNode())
	}
	return sel, nil
}
