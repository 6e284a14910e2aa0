package config

const (
	defaultDataDir             = "~/.local/share/podcaster"
	defaultLogDir              = "~/.local/share/podcaster/logs"
	defaultAudioDir            = "~/.local/share/podcaster/audio"
	defaultWorkspace           = "default"
	defaultStoreDriver         = DriverSQLite
	defaultStoreFile           = "podcaster.db"
	defaultLLMProvider         = ProviderOpenRouter
	defaultOpenRouterBaseURL   = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel     = "google/gemini-3-flash-preview"
	defaultOpenAIBaseURL       = "https://api.openai.com/v1/"
	defaultOpenAIModel         = "gpt-4o-mini"
	defaultLLMReferer          = "https://github.com/podcaster/podcaster"
	defaultLLMTitle            = "Podcaster"
	defaultLLMTimeoutSeconds   = 60
	defaultLLMTemperature      = 0.9
	defaultFeedBaseURL         = "http://127.0.0.1:7490/"
	defaultFeedIdentity        = IdentityWorkspace
	defaultFeedLanguage        = "en-US"
	defaultFeedCategory        = "Technology"
	defaultServerBind          = "127.0.0.1:7490"
	defaultTelemetryService    = "podcaster"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultGenerationCacheFlag = true
	defaultNtfyTimeoutSeconds  = 10
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Completion providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Feed identity modes control how the feed GUID is derived.
const (
	// IdentityWorkspace keys the feed by the workspace name.
	IdentityWorkspace = "workspace"
	// IdentityPremise keys the feed by workspace and generated podcast name.
	IdentityPremise = "premise"
	// IdentityNone creates an un-keyed feed, limited to one per workspace.
	IdentityNone = "none"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			AudioDir: defaultAudioDir,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
		},
		Generation: Generation{
			CacheEnabled: defaultGenerationCacheFlag,
		},
		Feed: Feed{
			BaseURL:  defaultFeedBaseURL,
			Identity: defaultFeedIdentity,
			Language: defaultFeedLanguage,
			Category: defaultFeedCategory,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Telemetry: Telemetry{
			ServiceName: defaultTelemetryService,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
