package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnana997/treeshake/pkg/config"
	"github.com/gnana997/treeshake/pkg/runner"
)

const defaultConfigPath = ".treeshake/config.yaml"

// ProjectConfig holds the contents of .treeshake/config.yaml.
//
// Example:
//
//	jsxs: [jsx, jsxs, jsxDEV, h]
//	matches: ["^on[A-Z]"]
//	exclude: ["**/vendor"]
//	workers: 8
//	log_level: info
type ProjectConfig struct {
	Jsxs      []string `yaml:"jsxs"`
	Matches   []string `yaml:"matches"`
	Include   []string `yaml:"include"`
	Exclude   []string `yaml:"exclude"`
	Workers   int      `yaml:"workers"`
	LogLevel  string   `yaml:"log_level"`
	LogFormat string   `yaml:"log_format"`
}

// loadProjectConfig reads the project config at path.
// Returns nil (no error) if the file does not exist.
func loadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// settings is the resolved configuration of one command invocation.
type settings struct {
	options   config.Options
	scan      runner.ScanConfig
	workers   int
	logLevel  string
	logFormat string

	// warnings are logged once the logger exists.
	warnings []string
}

// resolveSettings layers defaults, the project file and the command line,
// later layers winning. An --options payload replaces the pass options
// wholesale with the same fallback rules a build pipeline gets; --jsxs and
// --matches then override single fields.
func resolveSettings(flags *globalFlags, changed func(string) bool) (*settings, error) {
	s := &settings{
		options:   config.DefaultOptions(),
		scan:      runner.DefaultScanConfig(),
		logLevel:  "warn",
		logFormat: "text",
	}

	project, err := loadProjectConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	if project != nil {
		s.options = s.options.Merge(config.Options{Jsxs: project.Jsxs, Matches: project.Matches})
		if len(project.Include) > 0 {
			s.scan.Include = project.Include
		}
		s.scan.Exclude = append(s.scan.Exclude, project.Exclude...)
		if project.Workers > 0 {
			s.workers = project.Workers
		}
		if project.LogLevel != "" {
			s.logLevel = project.LogLevel
		}
		if project.LogFormat != "" {
			s.logFormat = project.LogFormat
		}
	}

	if flags.optionsJSON != "" {
		opts, perr := config.ParseOptions([]byte(flags.optionsJSON))
		if perr != nil {
			s.warnings = append(s.warnings, perr.Error())
		}
		s.options = opts
	}
	if changed("jsxs") {
		s.options.Jsxs = flags.jsxs
	}
	if changed("matches") {
		s.options.Matches = flags.matches
	}

	if changed("include") {
		s.scan.Include = flags.include
	}
	s.scan.Exclude = append(s.scan.Exclude, flags.exclude...)

	if changed("workers") {
		s.workers = flags.workers
	}
	if changed("log-level") {
		s.logLevel = flags.logLevel
	}
	if changed("log-format") {
		s.logFormat = flags.logFormat
	}

	return s, nil
}
