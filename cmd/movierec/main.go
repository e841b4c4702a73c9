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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/cmd/version"
	"github.com/gorse-io/movierec/config"
	"github.com/gorse-io/movierec/engine"
	"github.com/gorse-io/movierec/server"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "movierec",
	Short: "Movie recommendation server trained by alternating least squares.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}

		conf := setup(cmd)

		// create tracer provider
		tp, err := conf.Tracing.NewTracerProvider()
		if err != nil {
			log.Logger().Fatal("failed to create tracer provider", zap.Error(err))
		}
		otel.SetTracerProvider(tp)
		otel.SetErrorHandler(log.GetErrorHandler())

		// initialize engine
		e, err := engine.NewEngine(conf)
		if err != nil {
			log.Logger().Fatal("failed to create engine", zap.Error(err))
		}
		defer e.Close()
		start := time.Now()
		if err = e.Initialize(cmd.Context()); err != nil {
			log.Logger().Fatal("failed to initialize engine", zap.Error(err))
		}
		status := e.Status()
		log.Logger().Info("engine initialized",
			zap.Int("num_ratings", status.NumRatings),
			zap.Int("num_items", status.NumItems),
			zap.Int("num_users", status.NumUsers),
			zap.Duration("elapsed", time.Since(start)))

		// stop server
		s := server.NewRestServer(conf, e, tp)
		done := make(chan struct{})
		go func() {
			sigint := make(chan os.Signal, 1)
			signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
			<-sigint
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Shutdown(ctx); err != nil {
				log.Logger().Error("failed to shutdown http server", zap.Error(err))
			}
			if err := tp.Shutdown(ctx); err != nil {
				log.Logger().Error("failed to shutdown tracer provider", zap.Error(err))
			}
			close(done)
		}()
		// start server
		if err = s.StartHttpServer(); err != nil {
			log.Logger().Fatal("failed to start http server", zap.Error(err))
		}
		<-done
		log.Logger().Info("stop movierec successfully")
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print build information.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.BuildInfo())
	},
}

// setup configures the logger and loads the configuration.
func setup(cmd *cobra.Command) *config.Config {
	debug, _ := cmd.Flags().GetBool("debug")
	log.SetLogger(cmd.Flags(), debug)
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	return conf
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().BoolP("version", "v", false, "movierec version")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.AddCommand(versionCommand)
	rootCommand.AddCommand(tuneCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
