package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/tickrun/sim"
)

// Environment variable names.
const (
	EnvRunPath       = "TICKRUN_RUN_PATH"
	EnvDataLogRateHz = "TICKRUN_DATA_LOG_RATE_HZ"
	EnvPublishSocket = "TICKRUN_PUBLISH_SOCKET"
	EnvParamsPath    = "TICKRUN_PARAMS_PATH"
	EnvDiagramPath   = "TICKRUN_DIAGRAM_PATH"
	EnvLogLevel      = "TICKRUN_LOG_LEVEL"
	EnvSQLite        = "TICKRUN_SQLITE"

	EnvClickHouseAddr     = "TICKRUN_CLICKHOUSE_ADDR"
	EnvClickHouseDatabase = "TICKRUN_CLICKHOUSE_DATABASE"
	EnvClickHouseUser     = "TICKRUN_CLICKHOUSE_USER"
	EnvClickHousePassword = "TICKRUN_CLICKHOUSE_PASSWORD"
)

// Vars are the process-level settings of a run.
type Vars struct {
	// RunPath is the directory outputs and crash reports are written to.
	RunPath string

	// DataLogRateHz is the file log rate. Zero or less logs every tick.
	DataLogRateHz float64

	// PublishSocket is a UDP address records are published to. Empty
	// disables publishing.
	PublishSocket string

	// ParamsPath is a params file overriding the diagram parameters.
	ParamsPath string

	// DiagramPath is the diagram to run. Empty runs the default diagram.
	DiagramPath string

	LogLevel string

	// SQLite also records into a database in the run path.
	SQLite bool

	// ClickHouse also records into a ClickHouse server when Addr is set.
	ClickHouse ClickHouseVars
}

// ClickHouseVars locate a ClickHouse server.
type ClickHouseVars struct {
	Addr     string
	Database string
	User     string
	Password string
}

// DefaultVars returns the settings used when nothing is configured.
func DefaultVars() Vars {
	return Vars{
		RunPath:  ".",
		LogLevel: "info",
	}
}

// LoadVars loads the given .env files, or ./.env if none is given, and then
// reads the environment. Variables already set in the environment win over
// the files. A missing ./.env is not an error.
func LoadVars(files ...string) (Vars, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return Vars{}, fmt.Errorf("load env files: %w", err)
		}
	}

	return VarsFromEnv(os.LookupEnv)
}

// VarsFromEnv reads the settings through lookup.
func VarsFromEnv(lookup func(string) (string, bool)) (Vars, error) {
	v := DefaultVars()

	if s, ok := lookup(EnvRunPath); ok && s != "" {
		v.RunPath = s
	}

	if s, ok := lookup(EnvDataLogRateHz); ok && s != "" {
		rate, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Vars{}, fmt.Errorf("%w: %s: %w", sim.ErrConfiguration,
				EnvDataLogRateHz, err)
		}

		v.DataLogRateHz = rate
	}

	if s, ok := lookup(EnvSQLite); ok && s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Vars{}, fmt.Errorf("%w: %s: %w", sim.ErrConfiguration,
				EnvSQLite, err)
		}

		v.SQLite = b
	}

	v.PublishSocket, _ = lookup(EnvPublishSocket)
	v.ParamsPath, _ = lookup(EnvParamsPath)
	v.DiagramPath, _ = lookup(EnvDiagramPath)

	v.ClickHouse.Addr, _ = lookup(EnvClickHouseAddr)
	v.ClickHouse.Database, _ = lookup(EnvClickHouseDatabase)
	v.ClickHouse.User, _ = lookup(EnvClickHouseUser)
	v.ClickHouse.Password, _ = lookup(EnvClickHousePassword)

	if s, ok := lookup(EnvLogLevel); ok && s != "" {
		v.LogLevel = s
	}

	if _, err := ParseLogLevel(v.LogLevel); err != nil {
		return Vars{}, err
	}

	return v, nil
}

// ParseLogLevel converts debug, info, warn or error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", sim.ErrConfiguration, s)
	}

	return level, nil
}
