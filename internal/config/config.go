package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/issuer-allocation/pkg/issuertable"
)

const (
	configFileBase    = "issuer_allocation_config"
	defaultOutputPath = "allocation_results.csv"
)

// Columns names the headers of the issuer table and the exported member column
type Columns struct {
	ID      string `yaml:"id,omitempty"`
	Name    string `yaml:"name,omitempty"`
	Points  string `yaml:"points,omitempty"`
	Country string `yaml:"country,omitempty"`
	Member  string `yaml:"member,omitempty"`
}

// Config represents the application configuration
type Config struct {
	// TeamMembers can be overridden on the command line with --members
	TeamMembers     []string `yaml:"teamMembers,omitempty" validate:"omitempty,unique,dive,required"`
	DuplicatePolicy string   `yaml:"duplicatePolicy,omitempty" validate:"omitempty,oneof=skip reject"`
	Columns         Columns  `yaml:"columns,omitempty"`

	// InputSheet is the workbook tab to read from .xlsx files (first tab if empty)
	InputSheet string `yaml:"inputSheet,omitempty"`
	OutputPath string `yaml:"outputPath,omitempty"`

	// Google Sheets source and publish target (both optional)
	IssuerSheetID     string `yaml:"issuerSheetID,omitempty"`
	IssuerSheetRange  string `yaml:"issuerSheetRange,omitempty" validate:"required_with=IssuerSheetID"`
	AllocationSheetID string `yaml:"allocationSheetID,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from issuer_allocation_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration with an environment suffix
// For example, env="test" will look for "issuer_allocation_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with the standard issuer export layout
func (c *Config) ApplyDefaults() {
	defaults := issuertable.DefaultColumns()
	if c.Columns.ID == "" {
		c.Columns.ID = defaults.ID
	}
	if c.Columns.Name == "" {
		c.Columns.Name = defaults.Name
	}
	if c.Columns.Points == "" {
		c.Columns.Points = defaults.Points
	}
	if c.Columns.Country == "" {
		c.Columns.Country = defaults.Country
	}
	if c.Columns.Member == "" {
		c.Columns.Member = defaults.Member
	}
	if c.DuplicatePolicy == "" {
		c.DuplicatePolicy = "skip"
	}
	if c.OutputPath == "" {
		c.OutputPath = defaultOutputPath
	}
}

// Validate validates the configuration struct and checks the column layout
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Header names must be distinct or columns would shadow each other
	seen := make(map[string]bool)
	for _, header := range []string{cfg.Columns.ID, cfg.Columns.Name, cfg.Columns.Points, cfg.Columns.Country, cfg.Columns.Member} {
		if header == "" {
			continue
		}
		if seen[header] {
			return fmt.Errorf("config validation failed: column header %q used more than once", header)
		}
		seen[header] = true
	}

	return nil
}

// TableColumns returns the column layout for reading and exporting issuer tables
func (c *Config) TableColumns() issuertable.Columns {
	return issuertable.Columns{
		ID:      c.Columns.ID,
		Name:    c.Columns.Name,
		Points:  c.Columns.Points,
		Country: c.Columns.Country,
		Member:  c.Columns.Member,
	}
}

// ParseMembers splits a comma-separated member list, trimming whitespace and dropping blanks
func ParseMembers(raw string) []string {
	members := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			members = append(members, name)
		}
	}
	return members
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := configFileBase + ".yaml"
	if env != "" {
		configFileName = configFileBase + "." + env + ".yaml"
	}
	return findInCwdOrHome(configFileName)
}
