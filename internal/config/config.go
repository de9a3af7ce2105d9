// Package config loads the optional YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/thiagokokada/gitlanes/internal/git/backend"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/reach"
	"github.com/thiagokokada/gitlanes/internal/refs"
	"github.com/thiagokokada/gitlanes/internal/render"
)

const (
	// EnvVar names a configuration file when --config is not given.
	EnvVar = "GITLANES_CONFIG"
	// RepoFileName is looked up at the repository root last.
	RepoFileName = ".gitlanes.yaml"
)

type Config struct {
	Backend string       `yaml:"backend" validate:"oneof=native gitcli"`
	Theme   string       `yaml:"theme" validate:"oneof=auto light dark"`
	Palette []string     `yaml:"palette" validate:"omitempty,min=1,dive,hexcolor"`
	Log     LogConfig    `yaml:"log"`
	Labels  LabelsConfig `yaml:"labels"`
	Reach   ReachConfig  `yaml:"reach"`
	Server  ServerConfig `yaml:"server"`
}

type LogConfig struct {
	Args []string `yaml:"args" validate:"min=1,dive,required,logarg"`
}

type LabelsConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type ReachConfig struct {
	Strategy string `yaml:"strategy" validate:"oneof=heuristic strict"`
}

type ServerConfig struct {
	Addr     string        `yaml:"addr" validate:"required,hostname_port"`
	Debounce time.Duration `yaml:"debounce" validate:"min=0"`
}

func Default() Config {
	return Config{
		Backend: string(backend.KindGitCLI),
		Theme:   render.ThemeAuto.String(),
		Log:     LogConfig{Args: []string{"--topo-order", "--all"}},
		Reach:   ReachConfig{Strategy: reach.HeuristicStrategy.String()},
		Server: ServerConfig{
			Addr:     "127.0.0.1:7420",
			Debounce: 300 * time.Millisecond,
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// log.args end up on the git command line.
	if err := v.RegisterValidation("logarg", func(fl validator.FieldLevel) bool {
		return backend.CheckLogArg(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}
	return v
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", trimRoot(fe.Namespace()), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Filter().Validate(); err != nil {
		return fmt.Errorf("invalid config: labels: %w", err)
	}
	return nil
}

func trimRoot(namespace string) string {
	_, rest, ok := strings.Cut(namespace, ".")
	if !ok {
		return namespace
	}
	return rest
}

// Load decodes the file at path over the defaults and validates the result.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Discover picks the configuration file: explicit wins, then $GITLANES_CONFIG,
// then .gitlanes.yaml under repoRoot when it exists. It returns "" when none
// applies.
func Discover(explicit, repoRoot string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvVar); env != "" {
		return env
	}
	if repoRoot == "" {
		return ""
	}
	candidate := filepath.Join(repoRoot, RepoFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Resolve loads the discovered file, or returns the defaults when there is
// none.
func Resolve(explicit, repoRoot string) (Config, string, error) {
	path := Discover(explicit, repoRoot)
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func (c Config) BackendKind() backend.Kind {
	return backend.Kind(c.Backend)
}

func (c Config) ThemePreference() render.ThemePreference {
	return render.ThemePreferenceFromString(c.Theme)
}

func (c Config) Strategy() reach.Strategy {
	s, err := reach.ParseStrategy(c.Reach.Strategy)
	if err != nil {
		return reach.HeuristicStrategy
	}
	return s
}

// Filter returns nil when no label patterns are configured.
func (c Config) Filter() *refs.Filter {
	if len(c.Labels.Include) == 0 && len(c.Labels.Exclude) == 0 {
		return nil
	}
	return &refs.Filter{Include: c.Labels.Include, Exclude: c.Labels.Exclude}
}

// LanePalette returns the configured palette, or the theme's.
func (c Config) LanePalette(theme render.Theme) graph.Palette {
	if len(c.Palette) > 0 {
		return graph.Palette(c.Palette)
	}
	return theme.Palette()
}
