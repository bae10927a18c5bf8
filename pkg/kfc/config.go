package kfc

// Config is the full configuration surface this engine reads, grouped into
// the same sections as the host's config file.
type Config struct {
	General             GeneralConfig             `yaml:"general"`
	Wait                WaitConfig                `yaml:"wait"`
	Proactive           ProactiveConfig           `yaml:"proactive"`
	Reply               ReplyConfig               `yaml:"reply"`
	Prompt              PromptConfig              `yaml:"prompt"`
	ContinuousThinking  ContinuousThinkingConfig  `yaml:"continuous_thinking"`
	Debug               DebugConfig               `yaml:"debug"`
}

type GeneralConfig struct {
	Enabled             bool   `yaml:"enabled"`
	ModelTask           string `yaml:"model_task"`
	NativeMultimodal    bool   `yaml:"native_multimodal"`
	MaxImagesPerPayload int    `yaml:"max_images_per_payload"`
	MaxCompatRetries    int    `yaml:"max_compat_retries"`
}

type WaitConfig struct {
	MinSeconds             float64 `yaml:"min_seconds"`
	MaxSeconds             float64 `yaml:"max_seconds"`
	MaxConsecutiveTimeouts int     `yaml:"max_consecutive_timeouts"`
}

// Apply implements the WaitPolicy clamp: 0 if the model asked not to wait or
// the stream has timed out too many times already; else clamp to
// [MinSeconds, MaxSeconds].
func (w WaitConfig) Apply(rawSeconds float64, consecutiveTimeouts int) float64 {
	if rawSeconds <= 0 {
		return 0
	}
	if consecutiveTimeouts >= w.MaxConsecutiveTimeouts {
		return 0
	}
	if rawSeconds < w.MinSeconds {
		return w.MinSeconds
	}
	if rawSeconds > w.MaxSeconds {
		return w.MaxSeconds
	}
	return rawSeconds
}

type ProactiveConfig struct {
	Enabled            bool    `yaml:"enabled"`
	SilenceThreshold   int     `yaml:"silence_threshold"`
	TriggerProbability float64 `yaml:"trigger_probability"`
	MinInterval        int     `yaml:"min_interval"`
	QuietHoursStart    string  `yaml:"quiet_hours_start"`
	QuietHoursEnd      string  `yaml:"quiet_hours_end"`
	CheckInterval      int     `yaml:"check_interval"`
}

type ReplyConfig struct {
	TypingCharsPerSec float64 `yaml:"typing_chars_per_sec"`
	TypingDelayMin    float64 `yaml:"typing_delay_min"`
	TypingDelayMax    float64 `yaml:"typing_delay_max"`
}

type PromptConfig struct {
	MaxLogEntries      int `yaml:"max_log_entries"`
	MaxContextPayloads int `yaml:"max_context_payloads"`
}

type ContinuousThinkingConfig struct {
	Enabled            bool      `yaml:"enabled"`
	ProgressThresholds []float64 `yaml:"progress_thresholds"`
	MinInterval        float64   `yaml:"min_interval"`
}

type DebugConfig struct {
	ShowPrompt   bool `yaml:"show_prompt"`
	ShowResponse bool `yaml:"show_response"`
}

// DefaultConfig returns the documented defaults for every section.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Enabled:             true,
			ModelTask:           "actor",
			NativeMultimodal:    false,
			MaxImagesPerPayload: 4,
			MaxCompatRetries:    1,
		},
		Wait: WaitConfig{
			MinSeconds:             10,
			MaxSeconds:             600,
			MaxConsecutiveTimeouts: 3,
		},
		Proactive: ProactiveConfig{
			Enabled:            true,
			SilenceThreshold:   7200,
			TriggerProbability: 0.3,
			MinInterval:        1800,
			QuietHoursStart:    "23:00",
			QuietHoursEnd:      "07:00",
			CheckInterval:      60,
		},
		Reply: ReplyConfig{
			TypingCharsPerSec: 15.0,
			TypingDelayMin:    0.8,
			TypingDelayMax:    4.0,
		},
		Prompt: PromptConfig{
			MaxLogEntries:      50,
			MaxContextPayloads: 20,
		},
		ContinuousThinking: ContinuousThinkingConfig{
			Enabled:            true,
			ProgressThresholds: []float64{0.3, 0.6, 0.85},
			MinInterval:        30,
		},
		Debug: DebugConfig{
			ShowPrompt:   false,
			ShowResponse: true,
		},
	}
}
