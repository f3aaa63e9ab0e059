package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"orgline/internal/domain"
)

// Config models orgline.yml.
type Config struct {
	Company struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"company"`
	Codes struct {
		DepartmentPrefix string `yaml:"department_prefix"`
	} `yaml:"codes"`
	Defaults struct {
		SalaryCurrency    string `yaml:"salary_currency"`
		SalaryFrequency   string `yaml:"salary_frequency"`
		Headcount         int    `yaml:"headcount"`
		HeadPositionTitle string `yaml:"head_position_title"`
	} `yaml:"defaults"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with oc config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to the default config when no orgline.yml exists
// in the workspace.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default("acme"), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Company.ID == "" {
		return fmt.Errorf("config.company.id is required")
	}
	if c.Defaults.SalaryFrequency != "" && !validFrequency(c.Defaults.SalaryFrequency) {
		return fmt.Errorf("config.defaults.salary_frequency %s is not a known frequency", c.Defaults.SalaryFrequency)
	}
	if c.Defaults.Headcount < 0 {
		return fmt.Errorf("config.defaults.headcount must not be negative")
	}
	if c.Defaults.HeadPositionTitle != "" && !strings.Contains(c.Defaults.HeadPositionTitle, "%s") {
		return fmt.Errorf("config.defaults.head_position_title must contain %%s for the department title")
	}
	return nil
}

func validFrequency(f string) bool {
	switch f {
	case domain.FrequencyHourly, domain.FrequencyDaily, domain.FrequencyWeekly,
		domain.FrequencyMonthly, domain.FrequencyAnnual, domain.FrequencyPerJob:
		return true
	}
	return false
}

// HeadTitle renders the auto-created head position title for a department.
func (c *Config) HeadTitle(departmentTitle string) string {
	tpl := c.Defaults.HeadPositionTitle
	if tpl == "" {
		tpl = "Head of %s"
	}
	return fmt.Sprintf(tpl, departmentTitle)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "orgline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(companyID string) string {
	return fmt.Sprintf(defaultTemplate, companyID, companyID)
}

// Default returns the default Config struct for a company.
func Default(companyID string) *Config {
	var cfg Config
	cfg.Company.ID = companyID
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(companyID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `company:
  id: %s
  name: %s

codes:
  department_prefix: "DEP-"

defaults:
  salary_currency: USD
  salary_frequency: monthly
  headcount: 1
  head_position_title: "Head of %%s"
`
