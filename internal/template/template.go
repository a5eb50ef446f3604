// Package template renders prompts from Handlebars templates.
package template

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aymerick/raymond"

	"github.com/temirov/codeprompt/internal/types"
)

const (
	templateFileExtension = ".hbs"

	keyAbsoluteCodePath = "absolute_code_path"
	keySourceTree       = "source_tree"
	keyFiles            = "files"
	keyGitDiff          = "git_diff"
	keyGitHubIssue      = "github_issue"
	keyPath             = "path"
	keyExtension        = "extension"
	keyCode             = "code"
	keyNumber           = "number"
	keyTitle            = "title"
	keyBody             = "body"
	keyState            = "state"
	keyURL              = "url"

	errorParseTemplateFormat  = "parsing template %s: %w"
	errorRenderTemplateFormat = "rendering template %s: %w"
	errorReadTemplateFormat   = "reading template %s: %w"
	errorTemplateLookupFormat = "%w: %s"

	// DefaultTemplateName names the built-in template.
	DefaultTemplateName = "default"
)

// ErrTemplateNotFound reports a template argument that matches neither a file
// nor a template in the template directory.
var ErrTemplateNotFound = errors.New("template not found")

//go:embed templates/default.hbs
var defaultTemplateSource string

// Renderer renders a parsed Handlebars template. Values are inserted verbatim
// without HTML escaping.
type Renderer struct {
	name     string
	template *raymond.Template
}

// NewRenderer parses source under name.
func NewRenderer(name string, source string) (*Renderer, error) {
	parsedTemplate, parseError := raymond.Parse(source)
	if parseError != nil {
		return nil, fmt.Errorf(errorParseTemplateFormat, name, parseError)
	}
	return &Renderer{name: name, template: parsedTemplate}, nil
}

// DefaultRenderer returns a renderer for the built-in template.
func DefaultRenderer() (*Renderer, error) {
	return NewRenderer(DefaultTemplateName, defaultTemplateSource)
}

// Load resolves a template argument to a renderer. An empty argument selects the
// built-in template. Otherwise the argument is tried as a file path, then as a
// template name inside templateDirectory.
func Load(templateArgument string, templateDirectory string) (*Renderer, error) {
	if templateArgument == "" {
		return DefaultRenderer()
	}
	candidates := []string{templateArgument}
	if templateDirectory != "" {
		candidates = append(candidates,
			filepath.Join(templateDirectory, templateArgument),
			filepath.Join(templateDirectory, templateArgument+templateFileExtension),
		)
	}
	for _, candidate := range candidates {
		info, statError := os.Stat(candidate)
		if statError != nil || info.IsDir() {
			continue
		}
		source, readError := os.ReadFile(candidate)
		if readError != nil {
			return nil, fmt.Errorf(errorReadTemplateFormat, candidate, readError)
		}
		return NewRenderer(candidate, string(source))
	}
	return nil, fmt.Errorf(errorTemplateLookupFormat, ErrTemplateNotFound, templateArgument)
}

// Name identifies the template in error messages.
func (renderer *Renderer) Name() string {
	return renderer.name
}

// Render executes the template against promptContext.
func (renderer *Renderer) Render(promptContext types.PromptContext) (string, error) {
	rendered, renderError := renderer.template.Exec(templateData(promptContext))
	if renderError != nil {
		return "", fmt.Errorf(errorRenderTemplateFormat, renderer.name, renderError)
	}
	return rendered, nil
}

// templateData maps the prompt context to the variable names templates use.
func templateData(promptContext types.PromptContext) map[string]interface{} {
	files := make([]map[string]interface{}, 0, len(promptContext.Files))
	for _, file := range promptContext.Files {
		files = append(files, map[string]interface{}{
			keyPath:      raymond.SafeString(file.Path),
			keyExtension: raymond.SafeString(file.Extension),
			keyCode:      raymond.SafeString(file.Code),
		})
	}
	data := map[string]interface{}{
		keyAbsoluteCodePath: raymond.SafeString(promptContext.DirectoryName),
		keySourceTree:       raymond.SafeString(promptContext.SourceTree),
		keyFiles:            files,
		keyGitDiff:          raymond.SafeString(promptContext.GitDiff),
	}
	if promptContext.Issue != nil {
		data[keyGitHubIssue] = map[string]interface{}{
			keyNumber: promptContext.Issue.Number,
			keyTitle:  raymond.SafeString(promptContext.Issue.Title),
			keyBody:   raymond.SafeString(promptContext.Issue.Body),
			keyState:  raymond.SafeString(promptContext.Issue.State),
			keyURL:    raymond.SafeString(promptContext.Issue.URL),
		}
	}
	return data
}
