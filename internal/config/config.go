// Package config loads the settings of the seating commands.
//
// Settings come from config.json, then from a .env file and the SEATING_* environment, each source overriding the previous one.
// Solver executables are configured through "<solver>Path" keys (SEATING_<SOLVER>_PATH in the environment)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

const envPrefix = "SEATING_"

type Config struct {
	Solver string `validate:"omitempty,oneof=dpll kissat cadical minisat glucose-simp slime"`
	// Mode forced on every exam, the mode of the input applies when empty
	Mode   string        `validate:"omitempty,oneof=SEMESTER MID semester mid"`
	Budget time.Duration `validate:"gte=0"`
	Seed   uint64
	// Assignment store, "sqlite://<path>" or a postgres URL. Empty keeps assignments in memory
	Database string
	// Address of the Redis server guarding exam runs across processes
	Redis       string
	LockTimeout time.Duration `validate:"gte=0"`
	// Prometheus textfile the run metrics are written to
	Metrics string
	// Solver executables by "<solver>Path" key
	Solvers map[string]string `mapstructure:"-"`
}

func Default() Config {
	return Config{
		Solver:      "dpll",
		Budget:      30 * time.Second,
		LockTimeout: time.Minute,
		Solvers:     map[string]string{},
	}
}

// Load reads the configuration file at path, if any, and the environment. Missing files keep the defaults
func Load(path string, envFiles ...string) (Config, error) {
	config := Default()

	if path != "" {
		bytes, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return config, fmt.Errorf("cannot read %v: %w", path, err)
		} else if err == nil {
			var configJson map[string]any
			if err := json.Unmarshal(bytes, &configJson); err != nil {
				return config, fmt.Errorf("cannot parse %v: %w", path, err)
			}
			if err := decode(configJson, &config); err != nil {
				return config, fmt.Errorf("cannot decode %v: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("cannot load environment file: %w", err)
	}
	if err := decode(environment(), &config); err != nil {
		return config, fmt.Errorf("cannot decode environment: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return config, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func isPath(key string, _ any) bool {
	return strings.HasSuffix(key, "Path")
}

func decode(values map[string]any, config *Config) error {
	var paths map[string]string
	if err := mapstructure.WeakDecode(lo.PickBy(values, isPath), &paths); err != nil {
		return err
	}
	for key, path := range paths {
		config.Solvers[key] = path
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           config,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(lo.OmitBy(values, isPath))
}

// Collects the SEATING_* variables under the keys config.json uses: SEATING_LOCK_TIMEOUT as locktimeout, SEATING_GLUCOSE_SIMP_PATH as glucose-simpPath
func environment() map[string]any {
	values := make(map[string]any)
	for _, entry := range os.Environ() {
		key, value, _ := strings.Cut(entry, "=")
		name, ok := strings.CutPrefix(key, envPrefix)
		if !ok || value == "" {
			continue
		}

		name = strings.ToLower(name)
		if solver, ok := strings.CutSuffix(name, "_path"); ok {
			values[strings.ReplaceAll(solver, "_", "-")+"Path"] = value
			continue
		}
		values[strings.ReplaceAll(name, "_", "")] = value
	}
	return values
}
