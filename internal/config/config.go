package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a missing or unusable configuration value. Errors of
// this class are never retried; the operator has to fix the config file.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

type Config struct {
	Server struct {
		Port    int  `yaml:"port"`
		Verbose bool `yaml:"verbose"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
		Env   string `yaml:"env"` // development|production
	} `yaml:"logging"`

	Bank    BankConfig    `yaml:"bank"`
	Signing SigningConfig `yaml:"signing"`
	Payroll PayrollConfig `yaml:"payroll"`
}

// BankConfig names every parameter the transport layer reads. No hidden
// key-value lookups anywhere else.
type BankConfig struct {
	BaseURL     string `yaml:"base_url"`
	TokenURL    string `yaml:"token_url"`
	CompanyCode string `yaml:"company_code"`

	OAuth struct {
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		Scope        string `yaml:"scope"`
	} `yaml:"oauth"`

	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`

	MOLEstablishmentID string `yaml:"mol_establishment_id"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

type SigningConfig struct {
	// Path to the PEM-encoded RSA private key used for the x-jws-signature
	// header. PrivateKey may carry the PEM inline instead (takes precedence).
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKey     string `yaml:"private_key"`
}

type PayrollConfig struct {
	DebtorAccount string `yaml:"debtor_account"`

	// Payslip category codes treated as adjustment allowances and moved
	// into the sibling adjustment batch. The bank posts those funds as a
	// separate transaction.
	AdjustmentCodes []string `yaml:"adjustment_codes"`

	// Optional YYYY-MM-DD value date for adjustment batches. Empty means
	// submission date + 2 days.
	AdjustmentValueDate string `yaml:"adjustment_value_date"`
}

var defaultAdjustmentCodes = []string{"EAP", "FTA", "OTADD", "OAP"}

// Load reads and validates the yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "production"
	}
	if c.Bank.TimeoutSeconds == 0 {
		c.Bank.TimeoutSeconds = 30
	}
	if len(c.Payroll.AdjustmentCodes) == 0 {
		c.Payroll.AdjustmentCodes = append([]string(nil), defaultAdjustmentCodes...)
	}
}

// Validate checks every field the bank pipeline depends on. Missing values
// surface here, before any network call.
func (c *Config) Validate() error {
	required := []struct {
		field, value string
	}{
		{"bank.base_url", c.Bank.BaseURL},
		{"bank.token_url", c.Bank.TokenURL},
		{"bank.company_code", c.Bank.CompanyCode},
		{"bank.oauth.username", c.Bank.OAuth.Username},
		{"bank.oauth.password", c.Bank.OAuth.Password},
		{"bank.oauth.client_id", c.Bank.OAuth.ClientID},
		{"bank.oauth.client_secret", c.Bank.OAuth.ClientSecret},
		{"bank.cert_path", c.Bank.CertPath},
		{"bank.key_path", c.Bank.KeyPath},
		{"payroll.debtor_account", c.Payroll.DebtorAccount},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigError{Field: r.field, Reason: "value is required"}
		}
	}
	if c.Signing.PrivateKey == "" && c.Signing.PrivateKeyPath == "" {
		return &ConfigError{Field: "signing.private_key", Reason: "either private_key or private_key_path is required"}
	}
	return nil
}

// SigningKeyPEM returns the configured signing key material, reading the key
// file when the PEM is not inlined.
func (c *Config) SigningKeyPEM() (string, error) {
	if c.Signing.PrivateKey != "" {
		return c.Signing.PrivateKey, nil
	}
	data, err := os.ReadFile(c.Signing.PrivateKeyPath)
	if err != nil {
		return "", &ConfigError{Field: "signing.private_key_path", Reason: err.Error()}
	}
	return string(data), nil
}
