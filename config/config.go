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

package config

import (
	"context"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

const ServiceName = "movierec"

const (
	DefaultRank       = 8
	DefaultSeed       = 5
	DefaultIterations = 15
	DefaultReg        = 0.1
	DefaultMinRatings = 10
	DefaultN          = 10
	DefaultNoiseStd   = 0.1
)

// Config is the configuration for the recommendation service.
type Config struct {
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Model     ModelConfig     `mapstructure:"model"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Server    ServerConfig    `mapstructure:"server"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// DatasetConfig locates ratings.csv and movies.csv. Path is a local directory or
// an s3://, gs:// or az:// url.
type DatasetConfig struct {
	Path  string          `mapstructure:"path" validate:"required"`
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Endpoint        string `mapstructure:"endpoint"`
}

type AzureBlobConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
}

// ModelConfig holds the hyper-parameters of the initial training. Retraining after
// ratings are added reuses the parameters of the current model.
type ModelConfig struct {
	Rank       int     `mapstructure:"rank" validate:"gt=0"`
	Seed       int64   `mapstructure:"seed"`
	Iterations int     `mapstructure:"iterations" validate:"gt=0"`
	Reg        float64 `mapstructure:"reg" validate:"gte=0"`
	Jobs       int     `mapstructure:"jobs" validate:"gt=0"`
}

type RecommendConfig struct {
	MinRatings   int           `mapstructure:"min_ratings" validate:"gte=0"`
	ItemFilter   string        `mapstructure:"item_filter"`
	DefaultN     int           `mapstructure:"default_n" validate:"gt=0"`
	PrivacyNoise bool          `mapstructure:"privacy_noise"`
	NoiseStdDev  float64       `mapstructure:"noise_std_dev" validate:"gte=0"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	CacheSize    uint64        `mapstructure:"cache_size"`
}

type ServerConfig struct {
	Host         string  `mapstructure:"host"`
	Port         int     `mapstructure:"port" validate:"gte=0,lte=65535"`
	RetrainRate  float64 `mapstructure:"retrain_rate" validate:"gte=0"`
	RetrainBurst int64   `mapstructure:"retrain_burst" validate:"gte=0"`
}

type TracingConfig struct {
	EnableTracing     bool    `mapstructure:"enable_tracing"`
	Exporter          string  `mapstructure:"exporter" validate:"oneof=otlp otlphttp zipkin"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	Sampler           string  `mapstructure:"sampler" validate:"oneof=always never ratio"`
	Ratio             float64 `mapstructure:"ratio" validate:"gte=0,lte=1"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Path: "datasets/ml-latest-small",
		},
		Model: ModelConfig{
			Rank:       DefaultRank,
			Seed:       DefaultSeed,
			Iterations: DefaultIterations,
			Reg:        DefaultReg,
			Jobs:       1,
		},
		Recommend: RecommendConfig{
			MinRatings:  DefaultMinRatings,
			DefaultN:    DefaultN,
			NoiseStdDev: DefaultNoiseStd,
			CacheTTL:    time.Minute,
			CacheSize:   10000,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5432,
		},
		Tracing: TracingConfig{
			Exporter: "otlp",
			Sampler:  "always",
			Ratio:    1,
		},
	}
}

func (config *Config) Validate() error {
	validate := validator.New()
	return errors.Trace(validate.Struct(config))
}

func (config *TracingConfig) NewTracerProvider() (*tracesdk.TracerProvider, error) {
	if !config.EnableTracing {
		return tracesdk.NewTracerProvider(tracesdk.WithSampler(tracesdk.NeverSample())), nil
	}

	var exporter tracesdk.SpanExporter
	var err error
	switch config.Exporter {
	case "otlp":
		exporter, err = otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(config.CollectorEndpoint))
	case "otlphttp":
		exporter, err = otlptracehttp.New(context.Background(),
			otlptracehttp.WithInsecure(), otlptracehttp.WithEndpoint(config.CollectorEndpoint))
	case "zipkin":
		exporter, err = zipkin.New(config.CollectorEndpoint)
	default:
		return nil, errors.NotSupportedf("exporter %s", config.Exporter)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}

	var sampler tracesdk.Sampler
	switch config.Sampler {
	case "always":
		sampler = tracesdk.AlwaysSample()
	case "never":
		sampler = tracesdk.NeverSample()
	case "ratio":
		sampler = tracesdk.TraceIDRatioBased(config.Ratio)
	default:
		return nil, errors.NotSupportedf("sampler %s", config.Sampler)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithSampler(sampler),
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
		)),
	), nil
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [dataset]
	viper.SetDefault("dataset.path", defaultConfig.Dataset.Path)
	// [model]
	viper.SetDefault("model.rank", defaultConfig.Model.Rank)
	viper.SetDefault("model.seed", defaultConfig.Model.Seed)
	viper.SetDefault("model.iterations", defaultConfig.Model.Iterations)
	viper.SetDefault("model.reg", defaultConfig.Model.Reg)
	viper.SetDefault("model.jobs", defaultConfig.Model.Jobs)
	// [recommend]
	viper.SetDefault("recommend.min_ratings", defaultConfig.Recommend.MinRatings)
	viper.SetDefault("recommend.default_n", defaultConfig.Recommend.DefaultN)
	viper.SetDefault("recommend.noise_std_dev", defaultConfig.Recommend.NoiseStdDev)
	viper.SetDefault("recommend.cache_ttl", defaultConfig.Recommend.CacheTTL)
	viper.SetDefault("recommend.cache_size", defaultConfig.Recommend.CacheSize)
	// [server]
	viper.SetDefault("server.host", defaultConfig.Server.Host)
	viper.SetDefault("server.port", defaultConfig.Server.Port)
	// [tracing]
	viper.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	viper.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	viper.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"dataset.path", "MOVIEREC_DATASET_PATH"},
	{"dataset.s3.endpoint", "S3_ENDPOINT"},
	{"dataset.s3.access_key_id", "S3_ACCESS_KEY_ID"},
	{"dataset.s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
	{"dataset.gcs.credentials_file", "GCS_CREDENTIALS_FILE"},
	{"dataset.gcs.endpoint", "GCS_EMULATOR_ENDPOINT"},
	{"dataset.azure.account_name", "AZURE_STORAGE_ACCOUNT"},
	{"dataset.azure.account_key", "AZURE_STORAGE_KEY"},
	{"dataset.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
	{"model.jobs", "MOVIEREC_MODEL_JOBS"},
	{"recommend.privacy_noise", "MOVIEREC_PRIVACY_NOISE"},
	{"server.host", "MOVIEREC_SERVER_HOST"},
	{"server.port", "MOVIEREC_SERVER_PORT"},
	{"server.retrain_rate", "MOVIEREC_SERVER_RETRAIN_RATE"},
}

// LoadConfig loads configuration from toml file. An empty path loads defaults and
// environment variables only.
func LoadConfig(path string) (*Config, error) {
	// set default config
	setDefault()

	// bind environment bindings
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// load config file
	if path != "" {
		viper.SetConfigType("toml")
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf, viper.DecodeHook(decodeHook())); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		durationFromIntHook,
	)
}

// durationFromIntHook reads bare integers as seconds.
func durationFromIntHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	default:
		return data, nil
	}
}
