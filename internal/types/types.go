// Package types defines every cross‑package data structure used by the codeprompt CLI.
package types

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FileRecord is one file selected by a traversal, with its formatted content block.
type FileRecord struct {
	Path      string `json:"path" yaml:"path"`
	Extension string `json:"extension" yaml:"extension"`
	Code      string `json:"code" yaml:"code"`
}

// Issue holds the GitHub issue metadata merged into the prompt.
type Issue struct {
	Number int    `json:"number" yaml:"number"`
	Title  string `json:"title" yaml:"title"`
	Body   string `json:"body" yaml:"body"`
	State  string `json:"state" yaml:"state"`
	URL    string `json:"html_url" yaml:"url"`
}

// PromptContext is everything a prompt template can reference.
type PromptContext struct {
	DirectoryName string
	SourceTree    string
	Files         []FileRecord
	GitDiff       string
	Issue         *Issue
}

// PromptSummary is the machine-readable result printed by --json and --yaml.
type PromptSummary struct {
	Prompt        string   `json:"prompt" yaml:"prompt"`
	DirectoryName string   `json:"directory_name" yaml:"directory_name"`
	TokenCount    int      `json:"token_count" yaml:"token_count"`
	Files         []string `json:"files" yaml:"files"`
}
