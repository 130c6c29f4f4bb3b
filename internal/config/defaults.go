package config

const (
	defaultUploadDir              = "~/.local/share/medianotes/uploads"
	defaultLogDir                 = "~/.local/share/medianotes/logs"
	defaultAPIBind                = "127.0.0.1:8631"
	defaultDownloadBinary         = "yt-dlp"
	defaultDownloadFormat         = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/mp4"
	defaultDownloadTimeoutSeconds = 900
	defaultWhisperBinary          = "whisper-cli"
	defaultWhisperModelDir        = "~/.local/share/medianotes/models"
	defaultWhisperModel           = "ggml-base.en.bin"
	defaultWhisperLanguage        = "en"
	defaultWhisperTimeoutSeconds  = 1800
	defaultLLMModel               = "deepseek-chat"
	defaultLLMTimeoutSeconds      = 120
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Download: Download{
			Binary:         defaultDownloadBinary,
			Format:         defaultDownloadFormat,
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Whisper: Whisper{
			Binary:         defaultWhisperBinary,
			ModelDir:       defaultWhisperModelDir,
			Model:          defaultWhisperModel,
			Language:       defaultWhisperLanguage,
			TimeoutSeconds: defaultWhisperTimeoutSeconds,
		},
		LLM: LLM{
			DefaultModel:   defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Providers: map[string]LLMProvider{
				"deepseek": {BaseURL: "https://api.deepseek.com/v1"},
				"openai":   {BaseURL: "https://api.openai.com/v1"},
				"zhipu":    {BaseURL: "https://open.bigmodel.cn/api/paas/v4"},
				"moonshot": {BaseURL: "https://api.moonshot.cn/v1"},
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
