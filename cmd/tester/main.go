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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daviszhen/joinorder/pkg/joinorder"
	"github.com/daviszhen/joinorder/pkg/parser"
	"github.com/daviszhen/joinorder/pkg/plan"
	"github.com/daviszhen/joinorder/pkg/util"
)

func init() {
	cobra.OnInitialize(loadConfig)
	initOrderCmd()
	initBatchCmd()
}

var testerCfg = util.DefaultConfig()

///root cmd

var info = "tester"
var RootCmd = &cobra.Command{
	Use:          "tester",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use tester --help or -h")
	},
}

func initJoinOrderOptions() {
	testerCfg.JoinOrder.Strategy = viper.GetString("joinorder.strategy")
	testerCfg.JoinOrder.DPSizeLimit = viper.GetUint32("joinorder.dpSizeLimit")
	testerCfg.JoinOrder.TopK = viper.GetUint32("joinorder.topK")
	testerCfg.JoinOrder.AllowBushy = viper.GetBool("joinorder.allowBushy")
	testerCfg.JoinOrder.MaxDepth = viper.GetInt("joinorder.maxDepth")
	testerCfg.JoinOrder.BushyAlternatives = viper.GetInt("joinorder.bushyAlternatives")
	testerCfg.JoinOrder.DeferCrossProducts = viper.GetBool("joinorder.deferCrossProducts")
	testerCfg.Catalog.Path = viper.GetString("catalog.path")
	testerCfg.Log.Level = viper.GetString("log.level")
	testerCfg.Log.Development = viper.GetBool("log.development")
}

func initDebugOptions() {
	testerCfg.Debug.PrintPlan = viper.GetBool("debug.printPlan")
	testerCfg.Debug.PrintTopK = viper.GetBool("debug.printTopK")
	testerCfg.Debug.PrintGraph = viper.GetBool("debug.printGraph")
	testerCfg.Debug.Parallel = viper.GetInt("debug.parallel")
}

func initTesterCfg() error {
	initJoinOrderOptions()
	initDebugOptions()
	logger, err := util.NewLogger(testerCfg.Log)
	if err != nil {
		return err
	}
	util.SetLogger(logger)
	return nil
}

func setDefaults() {
	def := util.DefaultConfig()
	viper.SetDefault("joinorder.strategy", def.JoinOrder.Strategy)
	viper.SetDefault("joinorder.dpSizeLimit", def.JoinOrder.DPSizeLimit)
	viper.SetDefault("joinorder.topK", def.JoinOrder.TopK)
	viper.SetDefault("joinorder.maxDepth", def.JoinOrder.MaxDepth)
	viper.SetDefault("joinorder.bushyAlternatives", def.JoinOrder.BushyAlternatives)
	viper.SetDefault("joinorder.deferCrossProducts", def.JoinOrder.DeferCrossProducts)
	viper.SetDefault("log.level", def.Log.Level)
	viper.SetDefault("debug.printPlan", true)
	viper.SetDefault("debug.parallel", def.Debug.Parallel)
}

//order cmd

var orderInfo = "order the joins of one query"
var orderSQL string
var orderFile string
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: orderInfo,
	Long:  orderInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initTesterCfg(); err != nil {
			return err
		}
		query := orderSQL
		if orderFile != "" {
			data, err := os.ReadFile(orderFile)
			if err != nil {
				return err
			}
			query = string(data)
		}
		if strings.TrimSpace(query) == "" {
			return errors.New("need --sql or --file")
		}
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		out, err := orderQuery(cmd.Context(), catalog, query)
		if err != nil {
			util.Error("order query failed", zap.Error(err))
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func initOrderCmd() {
	RootCmd.AddCommand(orderCmd)
	orderCmd.Flags().StringVar(&orderSQL, "sql", "", "select statement")
	orderCmd.Flags().StringVar(&orderFile, "file", "", "file holding the select statement")
	orderCmd.Flags().String("strategy", "auto", "auto, dp, dpv2, greedy, mincard")
	orderCmd.Flags().Bool("allow_bushy", false, "use dpv2 for small queries")
	orderCmd.Flags().Bool("print_graph", false, "print the join graph")
	orderCmd.Flags().Bool("print_topk", false, "print the ranked join orders")

	viper.BindPFlag("joinorder.strategy", orderCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("joinorder.allowBushy", orderCmd.Flags().Lookup("allow_bushy"))
	viper.BindPFlag("debug.printGraph", orderCmd.Flags().Lookup("print_graph"))
	viper.BindPFlag("debug.printTopK", orderCmd.Flags().Lookup("print_topk"))
}

//batch cmd

var batchInfo = "order the joins of every .sql file in a directory"
var batchDir string
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: batchInfo,
	Long:  batchInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initTesterCfg(); err != nil {
			return err
		}
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), catalog, batchDir)
	},
}

func initBatchCmd() {
	RootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&batchDir, "dir", ".", "directory of .sql files")
	batchCmd.Flags().Int("parallel", 4, "queries ordered at once")

	viper.BindPFlag("debug.parallel", batchCmd.Flags().Lookup("parallel"))
}

func runBatch(ctx context.Context, catalog *plan.Catalog, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	outs := make([]string, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	if testerCfg.Debug.Parallel > 0 {
		g.SetLimit(testerCfg.Debug.Parallel)
	}
	for i, file := range files {
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			out, err := orderQuery(gCtx, catalog, string(data))
			if err != nil {
				util.Error("order query failed",
					zap.String("file", file),
					zap.Error(err))
				return errors.Wrapf(err, "%s", file)
			}
			outs[i] = out
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}
	for i, file := range files {
		fmt.Printf("-- %s\n%s", filepath.Base(file), outs[i])
	}
	return nil
}

// orderQuery binds one query against the catalog and reorders its joins.
func orderQuery(ctx context.Context, catalog *plan.Catalog, query string) (string, error) {
	strategy, err := joinorder.ParseStrategy(testerCfg.JoinOrder.Strategy)
	if err != nil {
		return "", err
	}
	sel, err := parser.ParseSelect(query)
	if err != nil {
		return "", err
	}
	memo := plan.NewMemo()
	root, err := plan.NewBinder(catalog, memo).BindSelect(sel)
	if err != nil {
		return "", err
	}
	est := plan.NewCardinalityEstimator(memo)
	rule := plan.NewJoinOrderRule(memo, est, joinorder.ConfigFrom(testerCfg.JoinOrder), strategy)
	res, err := rule.Apply(ctx, root)
	if err != nil {
		return "", err
	}

	sb := strings.Builder{}
	fmt.Fprintf(&sb, "strategy: %v\n", res.Outcome.Strategy)
	if testerCfg.Debug.PrintGraph {
		sb.WriteString(res.Outcome.Graph.String())
		sb.WriteByte('\n')
	}
	if testerCfg.Debug.PrintPlan {
		out, err := plan.Explain(est, res.Root)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	if testerCfg.Debug.PrintTopK {
		for _, line := range plan.ExplainAlternatives(res.Outcome.TopK) {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

func loadCatalog() (*plan.Catalog, error) {
	if testerCfg.Catalog.Path == "" {
		return plan.TpchCatalog(), nil
	}
	return plan.LoadCatalog(testerCfg.Catalog.Path)
}

var defCfgFilePaths = []string{".", "etc"}
var cfgFileName = "joinorder.toml"

func loadConfig() {
	setDefaults()
	for _, dirPath := range defCfgFilePaths {
		fpath := filepath.Join(dirPath, cfgFileName)
		if util.FileIsValid(fpath) {
			viper.SetConfigFile(fpath)
			err := viper.ReadInConfig()
			if err != nil {
				util.Error("viper load config file failed",
					zap.String("fpath", fpath),
					zap.Error(err))
				continue
			}
			return
		}
	}
	util.Info("joinorder.toml does not exist. use defaults")
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
