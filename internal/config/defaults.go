package config

const (
	defaultLogDir               = "~/.local/share/galley/logs"
	defaultCacheDir             = "~/.cache/galley"
	defaultRenderBinary         = "quarto"
	defaultRenderOutputDir      = "_output"
	defaultRenderTimeoutSeconds = 1800
	defaultPackagesBinary       = "Rscript"
	defaultPackagesMirror       = "https://cloud.r-project.org"
	defaultPackagesCores        = 2
	defaultPackagesTimeout      = 3600
	defaultVersionFile          = "R-version"
	defaultSpellingBinary       = "aspell"
	defaultSpellingLanguage     = "en_US"
	defaultSpellingMode         = "tex"
	defaultSpellingWordList     = "WORDLIST"
	defaultNotifyRequestTimeout = 10
	defaultWatchDebounceMs      = 750
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

func defaultSpellingExtensions() []string {
	return []string{".qmd", ".Rmd", ".md", ".tex"}
}

func defaultWatchExtensions() []string {
	return []string{".qmd", ".Rmd", ".md", ".tex", ".bib", ".yml", ".yaml", ".R", ".csv"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir,
		},
		Render: Render{
			Binary:         defaultRenderBinary,
			OutputDir:      defaultRenderOutputDir,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Packages: Packages{
			Binary:         defaultPackagesBinary,
			Mirror:         defaultPackagesMirror,
			Cores:          defaultPackagesCores,
			TimeoutSeconds: defaultPackagesTimeout,
		},
		Environment: Environment{
			VersionFile: defaultVersionFile,
		},
		Spelling: Spelling{
			Binary:     defaultSpellingBinary,
			Language:   defaultSpellingLanguage,
			Mode:       defaultSpellingMode,
			WordList:   defaultSpellingWordList,
			Extensions: defaultSpellingExtensions(),
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Render:         true,
			Restore:        true,
			Spelling:       true,
			Errors:         true,
		},
		Workflow: Workflow{
			WatchDebounceMs: defaultWatchDebounceMs,
			WatchExtensions: defaultWatchExtensions(),
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
