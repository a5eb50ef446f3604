package utils

// ConfigFileName is the name of the configuration file looked up in the
// working directory and in the user's home directory.
const ConfigFileName = ".codeprompt.toml"

// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
const LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

// ApplicationExecutionFailedMessage prefixes fatal command errors.
const ApplicationExecutionFailedMessage = "codeprompt failed"
