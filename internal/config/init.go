package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/temirov/codeprompt/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the user's home directory.
	InitTargetGlobal InitTarget = "global"

	configurationFilePermissions = 0o600

	defaultConfigurationTemplate = `# codeprompt configuration. Command-line flags override these values.

# Directory searched for templates given by name with --template.
# template_dir = "~/.config/codeprompt/templates"

# Tokenizer encoding: cl100k, o200k, p50k, p50k_edit, r50k or gpt2.
encoding = "cl100k"

include = []
exclude = []

[defaults]
exclude_priority = false
exclude_from_tree = false
use_gitignore = true
include_git = false
line_numbers = true
code_block = true
relative_paths = true
clipboard = true
tokens = true
warnings = true
`
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// InitializeConfiguration writes the default configuration to the requested target
// and returns the path written.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}
	var destinationPath string
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		destinationPath = filepath.Join(workingDirectory, utils.ConfigFileName)
	case InitTargetGlobal:
		globalPath, err := GlobalConfigurationPath()
		if err != nil {
			return "", err
		}
		destinationPath = globalPath
	default:
		return "", fmt.Errorf("unsupported init target %q", target)
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	if err := os.WriteFile(destinationPath, []byte(defaultConfigurationTemplate), configurationFilePermissions); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}

	return destinationPath, nil
}
