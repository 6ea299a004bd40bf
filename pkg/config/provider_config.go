// Package config provides configuration loading for action providers.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderConfigFile represents the structure of the providers.yaml file.
type ProviderConfigFile struct {
	Message     MessageGatewayConfig `yaml:"message"`
	Email       EmailConfig          `yaml:"email"`
	GroupInvite GroupInviteConfig    `yaml:"group_invite"`
}

// MessageGatewayConfig holds settings for the outbound messaging gateway.
type MessageGatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// EmailConfig holds SMTP settings for the email provider.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// GroupInviteConfig holds settings for the group invitation service.
type GroupInviteConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// LoadProviderConfig loads provider configuration from a YAML file.
func LoadProviderConfig(filepath string) (ProviderConfigFile, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return ProviderConfigFile{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var configFile ProviderConfigFile
	if err := yaml.Unmarshal(data, &configFile); err != nil {
		return ProviderConfigFile{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if configFile.Email.Port == 0 {
		configFile.Email.Port = 587
	}

	return configFile, nil
}

// LoadProviderConfigOrDefault attempts to load provider config from file,
// falling back to an empty configuration if the file doesn't exist. Providers
// with empty settings fail at execution time, not at startup.
func LoadProviderConfigOrDefault(filepath string) ProviderConfigFile {
	config, err := LoadProviderConfig(filepath)
	if err != nil {
		return ProviderConfigFile{
			Email: EmailConfig{Port: 587},
		}
	}

	return config
}
