// Package config holds the build-time parameters for a k-mer prefilter
// index build (spec §6's CLI surface) plus a manifest recording which
// config an on-disk index was built with, adapted from the teacher's
// pkg/config: the same JSON-tagged struct, Validate/Update methods,
// and atomic-rename manifest persistence, retargeted from LSM-tree
// tuning knobs to this domain's build parameters.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultManifestFileName = "MANIFEST"
	CurrentManifestVersion  = 1
)

var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrManifestNotFound = errors.New("manifest not found")
	ErrInvalidManifest  = errors.New("invalid manifest")
)

// MaskMode selects the low-complexity masking policy applied before
// indexing (spec §6's --mask flag).
type MaskMode int

const (
	MaskNone MaskMode = iota
	MaskHard
	MaskSoft
)

// Config carries the parameters spec §6 says the build CLI accepts,
// plus the identifying seq type and matrix name needed to reopen an
// index's META blob meaningfully.
type Config struct {
	Version int `json:"version"`

	K                  int      `json:"k"`
	SpacedKmer         bool     `json:"spaced_kmer"`
	SpacedPattern      []bool   `json:"spaced_pattern,omitempty"`
	MaskMode           MaskMode `json:"mask_mode"`
	KmerScoreThreshold int      `json:"kmer_score_threshold"`
	MaxSeqLen          int      `json:"max_seq_len"`
	AlphabetSize       int      `json:"alphabet_size"`
	CompBiasCorrection bool     `json:"comp_bias_correction"`
	SeqType            int      `json:"seq_type"`
	ScoreMatrixName    string   `json:"score_matrix_name"`

	mu sync.RWMutex
}

// NewDefaultConfig returns a Config matching spec §6's defaults: k=6,
// contiguous (unspaced) k-mers, no masking, no score threshold, the
// standard 20-residue amino-acid alphabet (plus the reserved symbol,
// for an effective size of 20), and BLOSUM62.
func NewDefaultConfig() *Config {
	return &Config{
		Version:            CurrentManifestVersion,
		K:                  6,
		SpacedKmer:         false,
		MaskMode:           MaskNone,
		KmerScoreThreshold: 0,
		MaxSeqLen:          1 << 20,
		AlphabetSize:       21,
		CompBiasCorrection: false,
		SeqType:            0, // alphabet.AminoAcids
		ScoreMatrixName:    "BLOSUM62",
	}
}

// Validate checks the configuration against spec §4.1's k range and
// §7's ParameterError conditions.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}
	if c.K < 2 || c.K > 7 {
		return fmt.Errorf("%w: k=%d outside [2, 7]", ErrInvalidConfig, c.K)
	}
	if c.SpacedKmer && len(c.SpacedPattern) < c.K {
		return fmt.Errorf("%w: spaced pattern shorter than k", ErrInvalidConfig)
	}
	if c.MaskMode < MaskNone || c.MaskMode > MaskSoft {
		return fmt.Errorf("%w: invalid mask mode %d", ErrInvalidConfig, c.MaskMode)
	}
	if c.MaxSeqLen <= 0 {
		return fmt.Errorf("%w: max sequence length must be positive", ErrInvalidConfig)
	}
	if c.AlphabetSize <= 0 {
		return fmt.Errorf("%w: alphabet size must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfigFromManifest loads just the configuration portion from the
// manifest file beside an index at dbPath.
func LoadConfigFromManifest(dbPath string) (*Config, error) {
	manifestPath := filepath.Join(dbPath, DefaultManifestFileName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrManifestNotFound
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveManifest writes a standalone manifest for this config to dbPath,
// via a temp file and atomic rename.
func (c *Config) SaveManifest(dbPath string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	manifestPath := filepath.Join(dbPath, DefaultManifestFileName)
	tempPath := manifestPath + ".tmp"

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tempPath, manifestPath); err != nil {
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}

// Update applies fn to modify the configuration under its lock.
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}
