package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Version != CurrentManifestVersion {
		t.Errorf("expected version %d, got %d", CurrentManifestVersion, cfg.Version)
	}
	if cfg.K != 6 {
		t.Errorf("expected k 6, got %d", cfg.K)
	}
	if cfg.SpacedKmer {
		t.Errorf("expected unspaced k-mers by default")
	}
	if cfg.AlphabetSize != 21 {
		t.Errorf("expected alphabet size 21, got %d", cfg.AlphabetSize)
	}
	if cfg.ScoreMatrixName != "BLOSUM62" {
		t.Errorf("expected ScoreMatrixName BLOSUM62, got %q", cfg.ScoreMatrixName)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}

	testCases := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{
			name:     "invalid version",
			mutate:   func(c *Config) { c.Version = 0 },
			expected: "invalid configuration: invalid version 0",
		},
		{
			name:     "k too small",
			mutate:   func(c *Config) { c.K = 1 },
			expected: "invalid configuration: k=1 outside [2, 7]",
		},
		{
			name:     "k too large",
			mutate:   func(c *Config) { c.K = 8 },
			expected: "invalid configuration: k=8 outside [2, 7]",
		},
		{
			name: "spaced pattern shorter than k",
			mutate: func(c *Config) {
				c.SpacedKmer = true
				c.SpacedPattern = []bool{true, true}
			},
			expected: "invalid configuration: spaced pattern shorter than k",
		},
		{
			name:     "zero max sequence length",
			mutate:   func(c *Config) { c.MaxSeqLen = 0 },
			expected: "invalid configuration: max sequence length must be positive",
		},
		{
			name:     "zero alphabet size",
			mutate:   func(c *Config) { c.AlphabetSize = 0 },
			expected: "invalid configuration: alphabet size must be positive",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if err.Error() != tc.expected {
				t.Errorf("expected error %q, got %q", tc.expected, err.Error())
			}
		})
	}
}

func TestConfigManifestSaveLoad(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := NewDefaultConfig()
	cfg.K = 5
	cfg.KmerScoreThreshold = 12

	if err := cfg.SaveManifest(tempDir); err != nil {
		t.Fatalf("failed to save manifest: %v", err)
	}

	loadedCfg, err := LoadConfigFromManifest(tempDir)
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}

	if loadedCfg.K != cfg.K {
		t.Errorf("expected k %d, got %d", cfg.K, loadedCfg.K)
	}
	if loadedCfg.KmerScoreThreshold != cfg.KmerScoreThreshold {
		t.Errorf("expected kmer score threshold %d, got %d", cfg.KmerScoreThreshold, loadedCfg.KmerScoreThreshold)
	}

	nonExistentDir := filepath.Join(tempDir, "nonexistent")
	_, err = LoadConfigFromManifest(nonExistentDir)
	if err != ErrManifestNotFound {
		t.Errorf("expected ErrManifestNotFound, got %v", err)
	}
}

func TestConfigUpdate(t *testing.T) {
	cfg := NewDefaultConfig()

	cfg.Update(func(c *Config) {
		c.K = 7
		c.CompBiasCorrection = true
	})

	if cfg.K != 7 {
		t.Errorf("expected k 7, got %d", cfg.K)
	}
	if !cfg.CompBiasCorrection {
		t.Errorf("expected comp bias correction enabled")
	}
}
