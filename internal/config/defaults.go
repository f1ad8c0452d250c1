package config

const (
	defaultAudioInboxDir   = "~/quill/inbox/audio"
	defaultAudioArchiveDir = "~/quill/archive"
	defaultTextInboxDir    = "~/quill/inbox/text"
	defaultKnowledgeDir    = "~/quill/knowledge"
	defaultLogDir          = "~/.local/share/quill/logs"
	defaultLockFile        = "~/.local/share/quill/quilld.lock"

	defaultOpenWebUITimeout = 300
	defaultChatModel        = "gpt-4o-mini"

	defaultWhisperBinary  = "whisper"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 900

	defaultDebounceDelay      = 15
	defaultDebounceTick       = 1
	defaultScanInterval       = 60
	defaultStabilityThreshold = 1
	defaultInFlightCooldown   = 1
	defaultSettleDelayMS      = 500

	defaultTagSearchWindow = 400
	minTagSearchWindow     = 10

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultTagTriggers() []string {
	return []string{"Tag", "Tags"}
}

func defaultContentTypes() []ContentType {
	return []ContentType{
		{
			Key:             "diary",
			Name:            "Personal Diary",
			TargetSubfolder: "Personal Diary",
			IsDefault:       true,
		},
		{
			Key:               "dream",
			Name:              "Dream Journal",
			TargetSubfolder:   "Dreams",
			DetectionKeywords: []string{"dream", "nightmare"},
			EnableAnalysis:    true,
			SystemPrompt:      "You analyze dream journal entries.",
			UserPrompt:        "Identify recurring symbols and themes in this dream.",
		},
	}
}

const (
	defaultMetadataSystemPrompt = "You extract structured metadata from personal notes. Respond with a single JSON object containing title, language, summary, emotions, and characters."
	defaultMetadataUserPrompt   = "Extract metadata from the following note."
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AudioInboxDir:   defaultAudioInboxDir,
			AudioArchiveDir: defaultAudioArchiveDir,
			TextInboxDir:    defaultTextInboxDir,
			KnowledgeDir:    defaultKnowledgeDir,
			LockFile:        defaultLockFile,
		},
		OpenWebUI: OpenWebUI{
			Model:          defaultChatModel,
			TimeoutSeconds: defaultOpenWebUITimeout,
		},
		Whisper: Whisper{
			Binary:         defaultWhisperBinary,
			Model:          defaultWhisperModel,
			TimeoutSeconds: defaultWhisperTimeout,
		},
		Workflow: Workflow{
			DebounceDelay:      defaultDebounceDelay,
			DebounceTick:       defaultDebounceTick,
			ScanInterval:       defaultScanInterval,
			StabilityThreshold: defaultStabilityThreshold,
			InFlightCooldown:   defaultInFlightCooldown,
			SettleDelayMS:      defaultSettleDelayMS,
		},
		Extraction: Extraction{
			TagTriggers:     defaultTagTriggers(),
			TagSearchWindow: defaultTagSearchWindow,
		},
		ContentTypes: defaultContentTypes(),
		Metadata: Metadata{
			SystemPrompt: defaultMetadataSystemPrompt,
			UserPrompt:   defaultMetadataUserPrompt,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Ingest:         true,
			Retry:          true,
			Repair:         true,
			SyncFailures:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}
