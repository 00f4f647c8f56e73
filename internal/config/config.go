package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/mgw2168/2019-nCoV/internal/domain"
)

// DefaultSourceURL is the Sina epidemic map feed.
const DefaultSourceURL = "https://interface.sina.cn/news/wap/fymap2020_data.d.json"

// Config holds all settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	SourceURL    string
	FetchTimeout time.Duration
	SeriesYear   int

	OutputDir         string
	FontPath          string
	ProvinceShapefile string
	BoundaryShapefile string
	BasemapShapefile  string
	ShapefileEncoding string
	DisplayCharts     bool
	ExportXLSX        bool

	HTTPAddr        string
	RefreshInterval time.Duration
	ShutdownTimeout time.Duration

	// Kafka publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "0s"))
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	year, err := strconv.Atoi(sharedcfg.EnvOrDefault("SERIES_YEAR", strconv.Itoa(domain.DefaultSeriesYear)))
	if err != nil || year < 1900 || year > 9999 {
		return nil, errors.New("invalid SERIES_YEAR")
	}

	displayCharts, err := parseBool("DISPLAY_CHARTS")
	if err != nil {
		return nil, err
	}
	exportXLSX, err := parseBool("EXPORT_XLSX")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		SourceURL:    sharedcfg.EnvOrDefault("SOURCE_URL", DefaultSourceURL),
		FetchTimeout: fetchTimeout,
		SeriesYear:   year,

		OutputDir:         sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		ProvinceShapefile: sharedcfg.EnvOrDefault("PROVINCE_SHAPEFILE", "china-shapefiles-master/china"),
		BoundaryShapefile: sharedcfg.EnvOrDefault("BOUNDARY_SHAPEFILE", "china-shapefiles-master/china_nine_dotted_line"),
		BasemapShapefile:  os.Getenv("BASEMAP_SHAPEFILE"),
		ShapefileEncoding: strings.ToLower(sharedcfg.EnvOrDefault("SHAPEFILE_ENCODING", "utf-8")),
		DisplayCharts:     displayCharts,
		ExportXLSX:        exportXLSX,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		RefreshInterval: refreshInterval,
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "ncov-statistics"),
	}

	// FONT_PATH may be set to an empty string to fall back to the bundled Latin fonts.
	cfg.FontPath = "simsun/simsun.ttf"
	if v, ok := os.LookupEnv("FONT_PATH"); ok {
		cfg.FontPath = v
	}

	switch cfg.ShapefileEncoding {
	case "utf-8", "utf8", "gbk":
	default:
		return nil, fmt.Errorf("invalid SHAPEFILE_ENCODING %q: must be utf-8 or gbk", cfg.ShapefileEncoding)
	}
	return cfg, nil
}

// KafkaEnabled reports whether statistics should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Serve reports whether the process should keep running after the first
// cycle, either to refresh charts or to serve them over HTTP.
func (c *Config) Serve() bool {
	return c.RefreshInterval > 0 || c.HTTPAddr != ""
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
