package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	LogMode string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	TelephonyMode     string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	TwilioRecord      bool
	BaseURL           string
	BridgeSIPURI      string

	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMHistory     int

	STTProvider  string
	STTAPIKey    string
	STTBaseURL   string
	STTModel     string
	WhisperPath  string
	WhisperModel string

	TTSProvider       string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsModel   string
	EdgeTTSVoice      string

	Language    string
	AudioFormat string
	AudioInput  string
	AudioOutput string
	FFmpegPath  string
	FFplayPath  string
	EdgeTTSPath string

	CaptureWindow          time.Duration
	TranscribeTimeout      time.Duration
	GenerateTimeout        time.Duration
	SynthesizeTimeout      time.Duration
	PlayTimeout            time.Duration
	AnswerTimeout          time.Duration
	PacingInterval         time.Duration
	SilenceCeiling         int
	MaxTurns               int
	MinTurnsBeforeKeywords int
	SilenceOutcome         string
	NationalPrefix         string
	ScriptPath             string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:    getEnv("PORT", "3000"),
		LogMode: getEnv("LOG_MODE", "development"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "./campaign.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "voice_campaign"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		TelephonyMode:     getEnv("TELEPHONY_MODE", "twilio"),
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
		TwilioRecord:      getBool("TWILIO_RECORD", true),
		BaseURL:           getEnv("BASE_URL", "http://localhost:3000"),
		BridgeSIPURI:      getEnv("BRIDGE_SIP_URI", ""),

		LLMAPIKey:      getEnv("LLM_API_KEY", getEnv("GROQ_API_KEY", "")),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:       getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
		LLMTemperature: getFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:   getInt("LLM_MAX_TOKENS", 150),
		LLMHistory:     getInt("LLM_HISTORY", 0),

		STTProvider:  getEnv("STT_PROVIDER", "openai"),
		STTAPIKey:    getEnv("STT_API_KEY", getEnv("OPENAI_API_KEY", "")),
		STTBaseURL:   getEnv("STT_BASE_URL", "https://api.openai.com/v1"),
		STTModel:     getEnv("STT_MODEL", "whisper-1"),
		WhisperPath:  getEnv("WHISPER_PATH", "whisper"),
		WhisperModel: getEnv("WHISPER_MODEL", "base"),

		TTSProvider:       getEnv("TTS_PROVIDER", "elevenlabs"),
		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),
		ElevenLabsModel:   getEnv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
		EdgeTTSVoice:      getEnv("EDGE_TTS_VOICE", "es-ES-ElviraNeural"),

		Language:    getEnv("LANGUAGE", "es"),
		AudioFormat: getEnv("AUDIO_FORMAT", "dshow"),
		AudioInput:  getEnv("AUDIO_INPUT", "CABLE Output (VB-Audio Virtual Cable)"),
		AudioOutput: getEnv("AUDIO_OUTPUT", ""),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFplayPath:  getEnv("FFPLAY_PATH", "ffplay"),
		EdgeTTSPath: getEnv("EDGE_TTS_PATH", "edge-tts"),

		CaptureWindow:          getDuration("CAPTURE_WINDOW", 8*time.Second),
		TranscribeTimeout:      getDuration("TRANSCRIBE_TIMEOUT", 20*time.Second),
		GenerateTimeout:        getDuration("GENERATE_TIMEOUT", 20*time.Second),
		SynthesizeTimeout:      getDuration("SYNTHESIZE_TIMEOUT", 20*time.Second),
		PlayTimeout:            getDuration("PLAY_TIMEOUT", 60*time.Second),
		AnswerTimeout:          getDuration("ANSWER_TIMEOUT", 30*time.Second),
		PacingInterval:         getDuration("PACING_INTERVAL", 5*time.Second),
		SilenceCeiling:         getInt("SILENCE_CEILING", 3),
		MaxTurns:               getInt("MAX_TURNS", 10),
		MinTurnsBeforeKeywords: getInt("MIN_TURNS_BEFORE_KEYWORDS", 0),
		SilenceOutcome:         getEnv("SILENCE_OUTCOME", "HUNG_UP"),
		NationalPrefix:         getEnv("NATIONAL_PREFIX", "34"),
		ScriptPath:             getEnv("SCRIPT_PATH", ""),
	}
}

// StatusCallbackURL is where Twilio posts call progress events.
func (c *Config) StatusCallbackURL() string {
	return c.BaseURL + "/twilio/status"
}

// VoiceURL is the TwiML document fetched once a call is answered.
func (c *Config) VoiceURL() string {
	return c.BaseURL + "/twilio/voice"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s: %q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s: %q, using %v", key, value, fallback)
		return fallback
	}
	return b
}

func getFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: invalid number for %s: %q, using %v", key, value, fallback)
		return fallback
	}
	return f
}

// getDuration accepts Go durations ("8s", "1m") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: invalid duration for %s: %q, using %s", key, value, fallback)
	return fallback
}
