// Package config loads flag defaults from configuration files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/codeprompt/internal/utils"
)

const (
	// EnvironmentPrefix prefixes every environment variable override, as in CODEPROMPT_ENCODING.
	EnvironmentPrefix = "CODEPROMPT"

	keyTemplateDirectory = "template_dir"
	keyEncoding          = "encoding"
	keyInclude           = "include"
	keyExclude           = "exclude"
	keyDefaults          = "defaults"

	keyExcludePriority = "exclude_priority"
	keyExcludeFromTree = "exclude_from_tree"
	keyUseGitignore    = "use_gitignore"
	keyIncludeGit      = "include_git"
	keyLineNumbers     = "line_numbers"
	keyCodeBlock       = "code_block"
	keyRelativePaths   = "relative_paths"
	keyClipboard       = "clipboard"
	keyTokens          = "tokens"
	keyWarnings        = "warnings"

	keySeparator         = "."
	environmentSeparator = "_"

	configurationFileType = "toml"
)

// environmentKeys lists every key that may be overridden from the environment.
var environmentKeys = []string{
	keyTemplateDirectory,
	keyEncoding,
	keyInclude,
	keyExclude,
	keyDefaults + keySeparator + keyExcludePriority,
	keyDefaults + keySeparator + keyExcludeFromTree,
	keyDefaults + keySeparator + keyUseGitignore,
	keyDefaults + keySeparator + keyIncludeGit,
	keyDefaults + keySeparator + keyLineNumbers,
	keyDefaults + keySeparator + keyCodeBlock,
	keyDefaults + keySeparator + keyRelativePaths,
	keyDefaults + keySeparator + keyClipboard,
	keyDefaults + keySeparator + keyTokens,
	keyDefaults + keySeparator + keyWarnings,
}

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	// SkipEnvironment ignores CODEPROMPT_* variables.
	SkipEnvironment bool
}

// ApplicationConfiguration holds the defaults applied before command-line flags.
type ApplicationConfiguration struct {
	TemplateDirectory string                `mapstructure:"template_dir"`
	Encoding          string                `mapstructure:"encoding"`
	Include           []string              `mapstructure:"include"`
	Exclude           []string              `mapstructure:"exclude"`
	Defaults          DefaultsConfiguration `mapstructure:"defaults"`
}

// DefaultsConfiguration holds boolean flag defaults. A nil value leaves the
// built-in default in place.
type DefaultsConfiguration struct {
	ExcludePriority *bool `mapstructure:"exclude_priority"`
	ExcludeFromTree *bool `mapstructure:"exclude_from_tree"`
	UseGitignore    *bool `mapstructure:"use_gitignore"`
	IncludeGit      *bool `mapstructure:"include_git"`
	LineNumbers     *bool `mapstructure:"line_numbers"`
	CodeBlock       *bool `mapstructure:"code_block"`
	RelativePaths   *bool `mapstructure:"relative_paths"`
	Clipboard       *bool `mapstructure:"clipboard"`
	Tokens          *bool `mapstructure:"tokens"`
	Warnings        *bool `mapstructure:"warnings"`
}

// GlobalConfigurationPath returns the per-user configuration file path.
func GlobalConfigurationPath() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDirectory, utils.ConfigFileName), nil
}

// LoadApplicationConfiguration merges the global file, the local or explicit
// file and the environment, in increasing order of precedence.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if globalPath, err := GlobalConfigurationPath(); err == nil {
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if options.ExplicitFilePath != "" {
		if _, statErr := os.Stat(localPath); statErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", localPath, statErr)
		}
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	if !options.SkipEnvironment {
		environmentConfig, environmentErr := loadConfigurationFromEnvironment()
		if environmentErr != nil {
			return ApplicationConfiguration{}, environmentErr
		}
		merged = merged.Merge(environmentConfig)
	}

	merged.Include = utils.DeduplicatePatterns(merged.Include)
	merged.Exclude = utils.DeduplicatePatterns(merged.Exclude)
	if merged.TemplateDirectory != "" {
		merged.TemplateDirectory = expandHome(merged.TemplateDirectory)
	}
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		reader.SetConfigType(configurationFileType)
	}
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

func loadConfigurationFromEnvironment() (ApplicationConfiguration, error) {
	reader := viper.New()
	reader.SetEnvPrefix(EnvironmentPrefix)
	reader.SetEnvKeyReplacer(strings.NewReplacer(keySeparator, environmentSeparator))
	for _, key := range environmentKeys {
		if bindErr := reader.BindEnv(key); bindErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("bind environment for %s: %w", key, bindErr)
		}
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode environment configuration: %w", decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.TemplateDirectory != "" {
		result.TemplateDirectory = override.TemplateDirectory
	}
	if override.Encoding != "" {
		result.Encoding = override.Encoding
	}
	if len(override.Include) > 0 {
		result.Include = append([]string{}, override.Include...)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, override.Exclude...)
	}
	result.Defaults = result.Defaults.merge(override.Defaults)
	return result
}

func (config DefaultsConfiguration) merge(override DefaultsConfiguration) DefaultsConfiguration {
	result := config
	if override.ExcludePriority != nil {
		result.ExcludePriority = cloneBool(override.ExcludePriority)
	}
	if override.ExcludeFromTree != nil {
		result.ExcludeFromTree = cloneBool(override.ExcludeFromTree)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.IncludeGit != nil {
		result.IncludeGit = cloneBool(override.IncludeGit)
	}
	if override.LineNumbers != nil {
		result.LineNumbers = cloneBool(override.LineNumbers)
	}
	if override.CodeBlock != nil {
		result.CodeBlock = cloneBool(override.CodeBlock)
	}
	if override.RelativePaths != nil {
		result.RelativePaths = cloneBool(override.RelativePaths)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if override.Tokens != nil {
		result.Tokens = cloneBool(override.Tokens)
	}
	if override.Warnings != nil {
		result.Warnings = cloneBool(override.Warnings)
	}
	return result
}

// BoolOrDefault dereferences value, falling back to fallback when value is nil.
func BoolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDirectory, path[1:])
}
