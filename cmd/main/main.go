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
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	wire "github.com/jeroenrinzema/psql-wire"
	"github.com/lib/pq/oid"
	"go.uber.org/zap"

	"github.com/daviszhen/joinorder/pkg/joinorder"
	"github.com/daviszhen/joinorder/pkg/parser"
	"github.com/daviszhen/joinorder/pkg/plan"
	"github.com/daviszhen/joinorder/pkg/util"
)

var runCfg = util.DefaultConfig()
var catalog *plan.Catalog

func init() {
	loadConfig()
}

var defCfgFilePaths = []string{".", "etc"}
var cfgFileName = "joinorder.toml"

func loadConfig() {
	for _, dirPath := range defCfgFilePaths {
		fpath := filepath.Join(dirPath, cfgFileName)
		if util.FileIsValid(fpath) {
			_, err := toml.DecodeFile(fpath, runCfg)
			if err != nil {
				util.Error("toml load config file failed",
					zap.String("fpath", fpath),
					zap.Error(err))
				continue
			}
			break
		}
	}
	if logger, err := util.NewLogger(runCfg.Log); err == nil {
		util.SetLogger(logger)
	}

	var err error
	if runCfg.Catalog.Path == "" {
		catalog = plan.TpchCatalog()
		return
	}
	catalog, err = plan.LoadCatalog(runCfg.Catalog.Path)
	if err != nil {
		util.Error("load catalog failed",
			zap.String("path", runCfg.Catalog.Path),
			zap.Error(err))
		os.Exit(1)
	}
}

func main() {
	util.Info("join order server", zap.String("addr", runCfg.Server.Addr))
	if err := wire.ListenAndServe(runCfg.Server.Addr, handler); err != nil {
		util.Error("server exit", zap.Error(err))
		os.Exit(1)
	}
}

func handler(ctx context.Context, query string) (wire.PreparedStatements, error) {
	util.Info("incoming SQL :", zap.String("query", query))
	strategy, err := joinorder.ParseStrategy(runCfg.JoinOrder.Strategy)
	if err != nil {
		return nil, err
	}
	execCtx := &ExecCtx{
		cfg:      runCfg,
		query:    query,
		strategy: strategy,
	}
	return wire.Prepared(
		wire.NewStatement(execCtx.handleX,
			wire.WithColumns(wire.Columns{
				{Name: "plan", Oid: oid.T_text},
			}),
		),
	), nil
}

type ExecCtx struct {
	cfg      *util.Config
	query    string
	strategy joinorder.Strategy
}

// handleX answers the query with its reordered plan, one line per row.
func (exec *ExecCtx) handleX(ctx context.Context, writer wire.DataWriter, parameters []wire.Parameter) (err error) {
	defer func() {
		if rErr := recover(); rErr != nil {
			err = errors.Join(err, util.ConvertPanicError(rErr))
		}
	}()

	lines, err := exec.order(ctx)
	if err != nil {
		util.Error("order query failed",
			zap.String("query", exec.query),
			zap.Error(err))
		return err
	}
	for _, line := range lines {
		if err = writer.Row([]any{line}); err != nil {
			return err
		}
	}
	return writer.Complete("EXPLAIN")
}

func (exec *ExecCtx) order(ctx context.Context) ([]string, error) {
	sel, err := parser.ParseSelect(exec.query)
	if err != nil {
		return nil, err
	}
	memo := plan.NewMemo()
	root, err := plan.NewBinder(catalog, memo).BindSelect(sel)
	if err != nil {
		return nil, err
	}
	est := plan.NewCardinalityEstimator(memo)
	rule := plan.NewJoinOrderRule(memo, est, joinorder.ConfigFrom(exec.cfg.JoinOrder), exec.strategy)
	res, err := rule.Apply(ctx, root)
	if err != nil {
		return nil, err
	}
	out, err := plan.Explain(est, res.Root)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if exec.cfg.Debug.PrintTopK {
		lines = append(lines, plan.ExplainAlternatives(res.Outcome.TopK)...)
	}
	return lines, nil
}
