package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/iho/qbwriter/internal/domain"
)

// Env holds credentials and platform settings read from the environment.
type Env struct {
	// OAuth application credentials
	AppKey    string `env:"QB_APP_KEY"`
	AppSecret string `env:"QB_APP_SECRET"`

	// Platform state/secrets collaborators
	StorageToken   string `env:"QB_STORAGE_TOKEN"    envDefault:""`
	EncryptionHost string `env:"QB_ENCRYPTION_HOST"  envDefault:"https://encryption.keboola.com"`
	StorageHost    string `env:"QB_STORAGE_HOST"     envDefault:"https://connection.keboola.com"`
	ComponentID    string `env:"QB_COMPONENT_ID"     envDefault:""`
	ProjectID      string `env:"QB_PROJECT_ID"       envDefault:""`
	ConfigID       string `env:"QB_CONFIG_ID"        envDefault:""`
	BranchID       string `env:"QB_BRANCH_ID"        envDefault:"default"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// LoadEnv loads environment configuration.
func LoadEnv() (*Env, error) {
	cfg := &Env{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.AppKey == "" || cfg.AppSecret == "" {
		return nil, domain.NewConfigError("QB_APP_KEY and QB_APP_SECRET must be set")
	}

	return cfg, nil
}

// EndpointConfig selects one endpoint/action to process.
type EndpointConfig struct {
	Endpoint string `yaml:"endpoint"`
	Action   string `yaml:"action"`
}

// Manifest is the per-run configuration file.
type Manifest struct {
	CompanyID string `yaml:"company_id"`
	Sandbox   bool   `yaml:"sandbox"`

	// FailOnError selects strict policy: true aborts the run on the first
	// row rejection, false (default) records rejections in the error table
	// and continues.
	FailOnError bool `yaml:"fail_on_error"`

	Endpoints []EndpointConfig `yaml:"endpoints"`

	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	StateFile string `yaml:"state_file"`
	OAuthFile string `yaml:"oauth_file"`
}

// LoadManifest reads and validates the run configuration file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewConfigError("cannot read configuration %s: %v", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, domain.NewConfigError("cannot parse configuration %s: %v", path, err)
	}

	applyDefaults(&m)

	if m.CompanyID == "" {
		return nil, domain.NewConfigError("company_id is required")
	}

	return &m, nil
}

func applyDefaults(m *Manifest) {
	if m.InputDir == "" {
		m.InputDir = "in/tables"
	}
	if m.OutputDir == "" {
		m.OutputDir = "out/tables"
	}
	if m.StateFile == "" {
		m.StateFile = "out/state.json"
	}
	if m.OAuthFile == "" {
		m.OAuthFile = "in/oauth.json"
	}
	for i := range m.Endpoints {
		if m.Endpoints[i].Action == "" {
			m.Endpoints[i].Action = "create"
		}
	}
}

// Operations resolves the configured endpoint list into operations.
func (m *Manifest) Operations() ([]domain.Operation, error) {
	ops := make([]domain.Operation, 0, len(m.Endpoints))
	for _, e := range m.Endpoints {
		op, err := domain.ParseOperation(e.Endpoint, e.Action)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint entry: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}
