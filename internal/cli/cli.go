// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/codeprompt/internal/config"
	"github.com/temirov/codeprompt/internal/git"
	"github.com/temirov/codeprompt/internal/github"
	"github.com/temirov/codeprompt/internal/output"
	"github.com/temirov/codeprompt/internal/services/clipboard"
	"github.com/temirov/codeprompt/internal/services/confirm"
	"github.com/temirov/codeprompt/internal/template"
	"github.com/temirov/codeprompt/internal/tokenizer"
	"github.com/temirov/codeprompt/internal/traversal"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	includeFlagName         = "include"
	excludeFlagName         = "exclude"
	excludePriorityFlagName = "exclude-priority"
	excludeFromTreeFlagName = "exclude-from-tree"
	noGitignoreFlagName     = "no-gitignore"
	includeGitFlagName      = "git"
	diffStagedFlagName      = "diff-staged"
	diffStagedShorthand     = "d"
	diffUnstagedFlagName    = "diff-unstaged"
	diffUnstagedShorthand   = "u"
	issueFlagName           = "issue"
	noTokensFlagName        = "no-tokens"
	encodingFlagName        = "encoding"
	encodingShorthand       = "c"
	tokenizerFileFlagName   = "tokenizer-file"
	outputFlagName          = "output"
	outputShorthand         = "o"
	noLineNumbersFlagName   = "no-line-numbers"
	noLineNumbersShorthand  = "l"
	noCodeBlockFlagName     = "no-codeblock"
	absolutePathsFlagName   = "absolute-paths"
	noClipboardFlagName     = "no-clipboard"
	templateFlagName        = "template"
	templateShorthand       = "t"
	jsonFlagName            = "json"
	yamlFlagName            = "yaml"
	verboseFlagName         = "verbose"
	noWarningsFlagName      = "no-warnings"
	configFlagName          = "config"
	versionFlagName         = "version"

	includeFlagDescription         = "comma-delimited glob patterns of files to include"
	excludeFlagDescription         = "comma-delimited glob patterns of files to exclude"
	excludePriorityFlagDescription = "let exclude patterns win when a path matches both lists"
	excludeFromTreeFlagDescription = "drop excluded paths from the source tree as well"
	noGitignoreFlagDescription     = "do not apply .gitignore rules"
	includeGitFlagDescription      = "include the .git directory"
	diffStagedFlagDescription      = "add the staged git diff to the prompt"
	diffUnstagedFlagDescription    = "add the unstaged git diff to the prompt"
	issueFlagDescription           = "add the GitHub issue with this number to the prompt"
	noTokensFlagDescription        = "skip token counting"
	encodingFlagDescription        = "tokenizer encoding (cl100k, o200k, p50k, p50k_edit, r50k, gpt2) or OpenAI model name"
	tokenizerFileFlagDescription   = "Hugging Face tokenizer.json used for counting instead of an encoding"
	outputFlagDescription          = "write the prompt to this file"
	noLineNumbersFlagDescription   = "omit line numbers from file contents"
	noCodeBlockFlagDescription     = "do not wrap file contents in fenced code blocks"
	absolutePathsFlagDescription   = "show absolute file paths"
	noClipboardFlagDescription     = "do not copy the prompt to the clipboard"
	templateFlagDescription        = "Handlebars template file or name in the template directory"
	jsonFlagDescription            = "print a JSON summary instead of delivering the prompt"
	yamlFlagDescription            = "print a YAML summary instead of delivering the prompt"
	verboseFlagDescription         = "log pattern decisions and skipped entries"
	noWarningsFlagDescription      = "suppress warnings and answer every prompt with yes"
	configFlagDescription          = "configuration file used instead of ./" + utils.ConfigFileName
	versionFlagDescription         = "display application version"

	versionTemplate      = "codeprompt version: %s\n"
	defaultPath          = "."
	rootUse              = "codeprompt [path]"
	rootShortDescription = "turn a code base into an LLM prompt"
	rootLongDescription  = `codeprompt walks a project directory, selects files with --include and --exclude
glob patterns, and renders the source tree and file contents through a Handlebars template.
The staged or unstaged git diff and a GitHub issue can be added to the prompt.
The result is copied to the clipboard, written with --output, or summarized with --json or --yaml.`
	rootUsageExample = `  # Copy every Go file except tests
  codeprompt --include "*.go" --exclude "*_test.go" .

  # Review staged changes with a custom template
  codeprompt -d -t review.hbs

  # Write the prompt to a file without touching the clipboard
  codeprompt --no-clipboard -o prompt.md`

	tokenWarningThreshold   = 30000
	clipboardTokenThreshold = 200000

	// warningDiffWithoutTemplate is shown when a diff is requested with the built-in template.
	warningDiffWithoutTemplate = "Git diff option used without a template. Consider using --template with some git template."
	// warningIssueWithoutTemplate is shown when an issue is requested with the built-in template.
	warningIssueWithoutTemplate = "Issue option used without a template. Consider using --template with some git template."
	// warningLargeTokenCountFormat is shown after copying a large prompt to the clipboard.
	warningLargeTokenCountFormat = "Large token count (%d). You might want to consider using the --output option to write to a file instead of the clipboard"
	largeClipboardHeader         = "Warning: Output is very large"
	largeClipboardDetailsFormat  = "  Token count: %d (threshold: %d)"
	largeClipboardNotice         = "Copying this much data to clipboard may cause system issues."
	largeClipboardQuestion       = "Copy to clipboard anyway? [y/N] "
	clipboardSkippedMessage      = "Skipped copying to clipboard"
	clipboardCopiedMessage       = "Prompt successfully copied to clipboard!"
	outputWrittenFormat          = "Prompt written to file: %s (%s)"
	operationCancelledMessage    = "Operation cancelled by user"

	// errorNotRepositoryFormat reports git features requested outside a repository.
	errorNotRepositoryFormat = "git features used but no git repository found at %s: %w"
	// errorIssueFormat reports a failed issue lookup.
	errorIssueFormat = "fetching GitHub issue #%d: %w"
	// errorDiffFormat reports a failed diff.
	errorDiffFormat = "generating git diff: %w"
	// errorInvalidIssueFormat reports a non-positive issue number.
	errorInvalidIssueFormat = "invalid issue number %d"
	// errorConfigurationFormat reports an unreadable configuration file.
	errorConfigurationFormat = "loading configuration: %w"
	// errorTokenizerFormat reports a tokenizer that could not be created or run.
	errorTokenizerFormat = "counting tokens: %w"
	// errorWorkingDirectoryFormat reports an unavailable working directory.
	errorWorkingDirectoryFormat = "unable to determine working directory: %w"
)

// ErrCancelled is returned when the user declines a confirmation prompt.
var ErrCancelled = traversal.ErrUserCancelled

// IssueFetcher retrieves GitHub issue metadata.
type IssueFetcher interface {
	FetchIssue(ctx context.Context, owner string, repository string, number int) (types.Issue, error)
}

// Dependencies are the side-effecting collaborators of the command.
type Dependencies struct {
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
	Copier       clipboard.Copier
	IssueFetcher IssueFetcher
	// WorkingDirectory defaults to the process working directory.
	WorkingDirectory string
	// Logger overrides the logger built from --verbose.
	Logger *zap.Logger
}

// interactiveConfirmer approves sensitive files and answers free-form questions.
type interactiveConfirmer interface {
	confirm.Confirmer
	Ask(question string) bool
}

// promptOptions holds the parsed command-line flags.
type promptOptions struct {
	includePatterns  []string
	excludePatterns  []string
	excludePriority  bool
	excludeFromTree  bool
	noGitignore      bool
	includeGit       bool
	diffStaged       bool
	diffUnstaged     bool
	issueNumber      int
	noTokens         bool
	encoding         string
	tokenizerFile    string
	outputPath       string
	noLineNumbers    bool
	noCodeBlock      bool
	absolutePaths    bool
	noClipboard      bool
	templateArgument string
	jsonOutput       bool
	yamlOutput       bool
	verbose          bool
	noWarnings       bool
	configPath       string
	showVersion      bool

	templateDirectory string
}

// Execute runs the codeprompt application against the process streams.
func Execute() error {
	rootCommand := NewRootCommand(Dependencies{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Copier: clipboard.NewService(),
		IssueFetcher: github.NewClient(nil).
			WithAuthorizationToken(os.Getenv(github.TokenEnvironmentVariable)),
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// NewRootCommand builds the root Cobra command over the given dependencies.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	options := &promptOptions{}

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				fmt.Fprintf(dependencies.Stdout, versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			rootPath := defaultPath
			if len(arguments) > 0 {
				rootPath = arguments[0]
			}
			return runPrompt(command, rootPath, options, dependencies)
		},
	}
	rootCommand.SetIn(dependencies.Stdin)
	rootCommand.SetOut(dependencies.Stdout)
	rootCommand.SetErr(dependencies.Stderr)
	rootCommand.CompletionOptions.DisableDefaultCmd = true

	addPromptFlags(rootCommand, options)
	rootCommand.AddCommand(createInitCommand(dependencies))
	return rootCommand
}

// addPromptFlags registers every flag of the root command.
func addPromptFlags(command *cobra.Command, options *promptOptions) {
	flags := command.Flags()
	flags.StringArrayVar(&options.includePatterns, includeFlagName, nil, includeFlagDescription)
	flags.StringArrayVar(&options.excludePatterns, excludeFlagName, nil, excludeFlagDescription)
	registerBooleanFlag(flags, &options.excludePriority, excludePriorityFlagName, "", false, excludePriorityFlagDescription)
	registerBooleanFlag(flags, &options.excludeFromTree, excludeFromTreeFlagName, "", false, excludeFromTreeFlagDescription)
	registerBooleanFlag(flags, &options.noGitignore, noGitignoreFlagName, "", false, noGitignoreFlagDescription)
	registerBooleanFlag(flags, &options.includeGit, includeGitFlagName, "", false, includeGitFlagDescription)
	registerBooleanFlag(flags, &options.diffStaged, diffStagedFlagName, diffStagedShorthand, false, diffStagedFlagDescription)
	registerBooleanFlag(flags, &options.diffUnstaged, diffUnstagedFlagName, diffUnstagedShorthand, false, diffUnstagedFlagDescription)
	flags.IntVar(&options.issueNumber, issueFlagName, 0, issueFlagDescription)
	registerBooleanFlag(flags, &options.noTokens, noTokensFlagName, "", false, noTokensFlagDescription)
	flags.StringVarP(&options.encoding, encodingFlagName, encodingShorthand, tokenizer.DefaultEncoding, encodingFlagDescription)
	flags.StringVar(&options.tokenizerFile, tokenizerFileFlagName, "", tokenizerFileFlagDescription)
	flags.StringVarP(&options.outputPath, outputFlagName, outputShorthand, "", outputFlagDescription)
	registerBooleanFlag(flags, &options.noLineNumbers, noLineNumbersFlagName, noLineNumbersShorthand, false, noLineNumbersFlagDescription)
	registerBooleanFlag(flags, &options.noCodeBlock, noCodeBlockFlagName, "", false, noCodeBlockFlagDescription)
	registerBooleanFlag(flags, &options.absolutePaths, absolutePathsFlagName, "", false, absolutePathsFlagDescription)
	registerBooleanFlag(flags, &options.noClipboard, noClipboardFlagName, "", false, noClipboardFlagDescription)
	flags.StringVarP(&options.templateArgument, templateFlagName, templateShorthand, "", templateFlagDescription)
	registerBooleanFlag(flags, &options.jsonOutput, jsonFlagName, "", false, jsonFlagDescription)
	registerBooleanFlag(flags, &options.yamlOutput, yamlFlagName, "", false, yamlFlagDescription)
	registerBooleanFlag(flags, &options.verbose, verboseFlagName, "", false, verboseFlagDescription)
	registerBooleanFlag(flags, &options.noWarnings, noWarningsFlagName, "", false, noWarningsFlagDescription)
	flags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	flags.BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)
	command.MarkFlagsMutuallyExclusive(jsonFlagName, yamlFlagName)
}

// runPrompt builds, renders and delivers one prompt.
func runPrompt(command *cobra.Command, rootPath string, options *promptOptions, dependencies Dependencies) error {
	workingDirectory := dependencies.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}
	if !filepath.IsAbs(rootPath) {
		rootPath = filepath.Join(workingDirectory, rootPath)
	}

	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if configurationError != nil {
		return fmt.Errorf(errorConfigurationFormat, configurationError)
	}
	applyConfiguration(command, options, applicationConfiguration)

	logger := dependencies.Logger
	if logger == nil {
		applicationLogger, loggerError := utils.NewApplicationLogger(options.verbose)
		if loggerError != nil {
			return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
		}
		defer applicationLogger.Sync()
		logger = applicationLogger
	}

	reporter := output.NewReporter(dependencies.Stderr)
	warnings, validationError := validate(options, rootPath)
	if validationError != nil {
		return validationError
	}

	var confirmer interactiveConfirmer = confirm.NewPrompter(dependencies.Stdin, dependencies.Stderr)
	if options.noWarnings {
		confirmer = confirm.Always(true)
	}

	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	traversalResult, traversalError := traversal.Traverse(ctx, traversal.Config{
		Root:             rootPath,
		Include:          flattenPatterns(options.includePatterns),
		Exclude:          flattenPatterns(options.excludePatterns),
		ExcludePriority:  options.excludePriority,
		LineNumbers:      !options.noLineNumbers,
		RelativePaths:    !options.absolutePaths,
		ExcludeFromTree:  options.excludeFromTree,
		CodeBlock:        !options.noCodeBlock,
		UseGitignore:     !options.noGitignore,
		IncludeGit:       options.includeGit,
		WorkingDirectory: workingDirectory,
		Confirmer:        confirmer,
		Logger:           logger,
	})
	if traversalError != nil {
		if errors.Is(traversalError, traversal.ErrUserCancelled) {
			reporter.Error(operationCancelledMessage)
		}
		return traversalError
	}

	promptContext := types.PromptContext{
		DirectoryName: utils.Basename(rootPath),
		SourceTree:    traversalResult.Tree,
		Files:         traversalResult.Files,
	}
	if collectError := collectRepositoryContext(ctx, rootPath, options, dependencies.IssueFetcher, &promptContext); collectError != nil {
		return collectError
	}

	renderer, templateError := template.Load(options.templateArgument, options.templateDirectory)
	if templateError != nil {
		return templateError
	}
	renderedPrompt, renderError := renderer.Render(promptContext)
	if renderError != nil {
		return renderError
	}

	tokenCount := 0
	if !options.noTokens {
		counter, counterError := tokenizer.NewCounter(tokenizer.Config{Encoding: options.encoding, TokenizerFile: options.tokenizerFile})
		if counterError != nil {
			return fmt.Errorf(errorTokenizerFormat, counterError)
		}
		count, countError := counter.CountString(renderedPrompt)
		if countError != nil {
			return fmt.Errorf(errorTokenizerFormat, countError)
		}
		tokenCount = count
	}
	logger.Debug("prompt rendered",
		zap.String("template", renderer.Name()),
		zap.Int("files", len(traversalResult.Files)),
		zap.Int("tokens", tokenCount))

	if summaryFormat := options.summaryFormat(); summaryFormat != "" {
		return output.WriteSummary(dependencies.Stdout, types.PromptSummary{
			Prompt:        renderedPrompt,
			DirectoryName: promptContext.DirectoryName,
			TokenCount:    tokenCount,
			Files:         traversalResult.Paths(),
		}, summaryFormat)
	}

	return deliver(renderedPrompt, tokenCount, warnings, options, confirmer, dependencies, reporter)
}

// validate checks git prerequisites and returns the warnings to show after delivery.
func validate(options *promptOptions, rootPath string) ([]string, error) {
	diffRequested := options.diffStaged || options.diffUnstaged
	issueRequested := options.issueNumber != 0
	if options.issueNumber < 0 {
		return nil, fmt.Errorf(errorInvalidIssueFormat, options.issueNumber)
	}
	if (diffRequested || issueRequested) && !git.IsRepository(rootPath) {
		return nil, fmt.Errorf(errorNotRepositoryFormat, rootPath, git.ErrNotRepository)
	}
	var warnings []string
	if diffRequested && options.templateArgument == "" {
		warnings = append(warnings, warningDiffWithoutTemplate)
	}
	if issueRequested && options.templateArgument == "" {
		warnings = append(warnings, warningIssueWithoutTemplate)
	}
	return warnings, nil
}

// collectRepositoryContext fetches the git diff and the GitHub issue concurrently.
func collectRepositoryContext(ctx context.Context, rootPath string, options *promptOptions, fetcher IssueFetcher, promptContext *types.PromptContext) error {
	group, groupContext := errgroup.WithContext(ctx)

	if options.diffStaged || options.diffUnstaged {
		mode := git.DiffStaged
		switch {
		case options.diffStaged && options.diffUnstaged:
			mode = git.DiffBoth
		case options.diffUnstaged:
			mode = git.DiffUnstaged
		}
		group.Go(func() error {
			diffText, diffError := git.Diff(rootPath, mode)
			if diffError != nil {
				return fmt.Errorf(errorDiffFormat, diffError)
			}
			promptContext.GitDiff = diffText
			return nil
		})
	}

	if options.issueNumber > 0 {
		issueNumber := options.issueNumber
		group.Go(func() error {
			owner, repositoryName, remoteError := git.RepositoryInfo(rootPath)
			if remoteError != nil {
				return fmt.Errorf(errorIssueFormat, issueNumber, remoteError)
			}
			issue, fetchError := fetcher.FetchIssue(groupContext, owner, repositoryName, issueNumber)
			if fetchError != nil {
				return fmt.Errorf(errorIssueFormat, issueNumber, fetchError)
			}
			promptContext.Issue = &issue
			return nil
		})
	}

	return group.Wait()
}

// deliver copies the prompt to the clipboard, writes the output file or prints it.
func deliver(
	renderedPrompt string,
	tokenCount int,
	warnings []string,
	options *promptOptions,
	confirmer interactiveConfirmer,
	dependencies Dependencies,
	reporter *output.Reporter,
) error {
	if !options.noTokens {
		reporter.TokenCount(tokenCount)
	}

	if !options.noClipboard {
		if shouldCopyToClipboard(tokenCount, options, confirmer, dependencies.Stderr, reporter) {
			if copyError := dependencies.Copier.Copy(renderedPrompt); copyError != nil {
				return copyError
			}
			reporter.Success(clipboardCopiedMessage)
			if !options.noTokens && tokenCount > tokenWarningThreshold {
				warnings = append(warnings, fmt.Sprintf(warningLargeTokenCountFormat, tokenCount))
			}
		} else {
			reporter.Info(clipboardSkippedMessage)
		}
	}

	if options.outputPath != "" {
		if writeError := output.WriteFile(options.outputPath, renderedPrompt); writeError != nil {
			return writeError
		}
		reporter.Success(outputWrittenFormat, options.outputPath, utils.FormatFileSize(int64(len(renderedPrompt))))
	}

	if options.noClipboard && options.outputPath == "" {
		if _, printError := io.WriteString(dependencies.Stdout, renderedPrompt); printError != nil {
			return printError
		}
	}

	if !options.noWarnings {
		for _, warning := range warnings {
			reporter.Warning("%s", warning)
		}
	}
	return nil
}

// shouldCopyToClipboard asks before copying a prompt above the clipboard threshold.
func shouldCopyToClipboard(tokenCount int, options *promptOptions, confirmer interactiveConfirmer, writer io.Writer, reporter *output.Reporter) bool {
	if options.noTokens || tokenCount <= clipboardTokenThreshold {
		return true
	}
	if options.noWarnings {
		return true
	}
	reporter.Warning(largeClipboardHeader)
	fmt.Fprintf(writer, largeClipboardDetailsFormat+"\n\n", tokenCount, clipboardTokenThreshold)
	fmt.Fprintln(writer, largeClipboardNotice)
	return confirmer.Ask(largeClipboardQuestion)
}

// summaryFormat returns the requested summary format or an empty string.
func (options *promptOptions) summaryFormat() string {
	switch {
	case options.jsonOutput:
		return types.FormatJSON
	case options.yamlOutput:
		return types.FormatYAML
	default:
		return ""
	}
}

// flattenPatterns splits every comma-delimited flag value into patterns.
func flattenPatterns(values []string) []string {
	var patterns []string
	for _, value := range values {
		patterns = append(patterns, utils.ParseCommaDelimited(value)...)
	}
	return utils.DeduplicatePatterns(patterns)
}

// applyConfiguration fills flags that were not set on the command line from the configuration files.
func applyConfiguration(command *cobra.Command, options *promptOptions, applicationConfiguration config.ApplicationConfiguration) {
	flags := command.Flags()
	options.templateDirectory = applicationConfiguration.TemplateDirectory
	if !flags.Changed(includeFlagName) && len(applicationConfiguration.Include) > 0 {
		options.includePatterns = append([]string{}, applicationConfiguration.Include...)
	}
	if !flags.Changed(excludeFlagName) && len(applicationConfiguration.Exclude) > 0 {
		options.excludePatterns = append([]string{}, applicationConfiguration.Exclude...)
	}
	if !flags.Changed(encodingFlagName) && applicationConfiguration.Encoding != "" {
		options.encoding = applicationConfiguration.Encoding
	}

	defaults := applicationConfiguration.Defaults
	toggles := []struct {
		flagName string
		target   *bool
		value    *bool
		inverted bool
	}{
		{excludePriorityFlagName, &options.excludePriority, defaults.ExcludePriority, false},
		{excludeFromTreeFlagName, &options.excludeFromTree, defaults.ExcludeFromTree, false},
		{noGitignoreFlagName, &options.noGitignore, defaults.UseGitignore, true},
		{includeGitFlagName, &options.includeGit, defaults.IncludeGit, false},
		{noLineNumbersFlagName, &options.noLineNumbers, defaults.LineNumbers, true},
		{noCodeBlockFlagName, &options.noCodeBlock, defaults.CodeBlock, true},
		{absolutePathsFlagName, &options.absolutePaths, defaults.RelativePaths, true},
		{noClipboardFlagName, &options.noClipboard, defaults.Clipboard, true},
		{noTokensFlagName, &options.noTokens, defaults.Tokens, true},
		{noWarningsFlagName, &options.noWarnings, defaults.Warnings, true},
	}
	for _, toggle := range toggles {
		if toggle.value == nil || flags.Changed(toggle.flagName) {
			continue
		}
		*toggle.target = *toggle.value != toggle.inverted
	}
}
