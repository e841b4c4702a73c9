// Copyright 2026 gorse Project Authors
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
	"fmt"
	"os"
	"time"

	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/dataset"
	"github.com/gorse-io/movierec/model/cf"
	"github.com/gorse-io/movierec/storage/blob"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuneCommand = &cobra.Command{
	Use:   "tune",
	Short: "Search hyper-parameters of the rating model.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := setup(cmd)
		searchConfig := cf.DefaultSearchConfig()
		searchConfig.NumTrials, _ = cmd.Flags().GetInt("trials")
		searchConfig.TestRatio, _ = cmd.Flags().GetFloat64("test-ratio")

		// load dataset
		store, err := blob.Open(conf.Dataset.Path, conf.Dataset)
		if err != nil {
			log.Logger().Fatal("failed to open dataset", zap.Error(err))
		}
		d, err := dataset.Load(cmd.Context(), store)
		if err != nil {
			log.Logger().Fatal("failed to load dataset", zap.Error(err))
		}
		log.Logger().Info("load dataset",
			zap.String("path", log.RedactURL(conf.Dataset.Path)),
			zap.Int("num_ratings", d.CountRatings()),
			zap.Int("num_users", d.CountUsers()),
			zap.Int("num_items", d.CountItems()))

		// search
		base := cf.Params{
			Rank:       conf.Model.Rank,
			Seed:       conf.Model.Seed,
			Iterations: conf.Model.Iterations,
			Reg:        conf.Model.Reg,
			Jobs:       conf.Model.Jobs,
		}
		bar := progressbar.Default(int64(searchConfig.NumTrials), "Tuning")
		start := time.Now()
		result, err := cf.Search(cmd.Context(), d.Ratings(), base, searchConfig, func(cf.Trial) {
			_ = bar.Add(1)
		})
		if err != nil {
			log.Logger().Fatal("failed to search hyper-parameters", zap.Error(err))
		}
		_ = bar.Finish()

		// render table
		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"#", "RMSE", "Rank", "Reg", "Iterations"})
		for i, trial := range result.Trials {
			if err = table.Append([]string{
				fmt.Sprint(i),
				fmt.Sprintf("%.4f", trial.RMSE),
				fmt.Sprint(trial.Params.Rank),
				fmt.Sprintf("%.4g", trial.Params.Reg),
				fmt.Sprint(trial.Params.Iterations),
			}); err != nil {
				log.Logger().Fatal("failed to render table", zap.Error(err))
			}
		}
		if err = table.Render(); err != nil {
			log.Logger().Fatal("failed to render table", zap.Error(err))
		}
		log.Logger().Info("complete hyper-parameter search",
			zap.Stringer("best_params", result.BestParams),
			zap.Float32("best_rmse", result.BestRMSE),
			zap.Duration("elapsed", time.Since(start)))
	},
}

func init() {
	tuneCommand.Flags().Int("trials", cf.DefaultSearchConfig().NumTrials, "number of trials")
	tuneCommand.Flags().Float64("test-ratio", cf.DefaultSearchConfig().TestRatio, "ratio of hold-out ratings")
}
