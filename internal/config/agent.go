package config

import (
	"fmt"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentProviderName = "FOUNDRY_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "FOUNDRY_AGENT_BASE_URL"
	EnvAgentToken        = "FOUNDRY_AGENT_TOKEN"
	EnvAgentDeployment   = "FOUNDRY_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "FOUNDRY_AGENT_API_VERSION"
	EnvAgentAuthType     = "FOUNDRY_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "FOUNDRY_AGENT_MODEL_NAME"
)

// FinalizeAgent runs the go-agents AgentConfig through the same
// defaults / env / validate sequence the local config sections use.
// Credentials are expected through the environment rather than TOML.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults

	loadAgentEnv(c)
	return validateAgent(c)
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}

	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}

	for envVar, key := range map[string]string{
		EnvAgentToken:      "token",
		EnvAgentDeployment: "deployment",
		EnvAgentAPIVersion: "api_version",
		EnvAgentAuthType:   "auth_type",
	} {
		if v := os.Getenv(envVar); v != "" {
			c.Provider.Options[key] = v
		}
	}
}

func validateAgent(c *gaconfig.AgentConfig) error {
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.Provider == nil {
		return fmt.Errorf("provider required")
	}
	if c.Provider.Name == "" {
		return fmt.Errorf("provider name required")
	}
	if c.Model == nil {
		return fmt.Errorf("model required")
	}
	return nil
}
