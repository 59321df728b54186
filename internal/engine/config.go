package engine

import "time"

// Getter reads config values, *viper.Viper implements it
type Getter interface {
	GetString(key string) string
	GetInt(key string) int
	GetDuration(key string) time.Duration
}

// ReadConfig collects engine settings:
//
//	whisper.cmd, whisper.device, whisper.tmpDir
//	openai.url, openai.key, openai.model, openai.timeout
//	kaldi.url, kaldi.chunkSize, kaldi.chunkDelay
func ReadConfig(g Getter) Config {
	return Config{
		Whisper: WhisperConfig{
			Cmd:    g.GetString("whisper.cmd"),
			Device: g.GetString("whisper.device"),
			TmpDir: g.GetString("whisper.tmpDir"),
		},
		OpenAI: OpenAIConfig{
			URL:     g.GetString("openai.url"),
			Key:     g.GetString("openai.key"),
			Model:   g.GetString("openai.model"),
			Timeout: g.GetDuration("openai.timeout"),
		},
		Kaldi: KaldiConfig{
			URL:        g.GetString("kaldi.url"),
			ChunkSize:  g.GetInt("kaldi.chunkSize"),
			ChunkDelay: g.GetDuration("kaldi.chunkDelay"),
		},
	}
}
