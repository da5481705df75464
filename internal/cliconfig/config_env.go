package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (BULKSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("output-dir", os.Getenv("BULKSHIP_OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("watch", os.Getenv("BULKSHIP_WATCH_DIR"), &cfg.WatchDir)
	s.setString("log-level", os.Getenv("BULKSHIP_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("BULKSHIP_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("metrics-addr", os.Getenv("BULKSHIP_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setIntFromString("block-size", os.Getenv("BULKSHIP_BLOCK_SIZE"), &cfg.BlockSize); err != nil {
		return err
	}
	if err := s.setIntFromString("file-workers", os.Getenv("BULKSHIP_FILE_WORKERS"), &cfg.FileWorkers); err != nil {
		return err
	}
	if err := s.setIntFromString("max-line-bytes", os.Getenv("BULKSHIP_MAX_LINE_BYTES"), &cfg.MaxLineBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("chunk-size", os.Getenv("BULKSHIP_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}

	if err := s.setDuration("debounce", os.Getenv("BULKSHIP_DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}

	return nil
}
