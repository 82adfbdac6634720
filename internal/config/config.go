// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pdf-toolbox/internal/paths"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port        int           `yaml:"port"`
		MaxUploadMB int64         `yaml:"max_upload_mb"`
		ArtifactTTL time.Duration `yaml:"artifact_ttl"`
	} `yaml:"server"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`

	OCR struct {
		Languages       []string `yaml:"languages"`
		DefaultLanguage string   `yaml:"default_language"`
		PageSegMode     int      `yaml:"page_seg_mode"`
		Workers         int      `yaml:"workers"`
	} `yaml:"ocr"`

	LLM LLMConfig `yaml:"llm"`

	Embeddings struct {
		Model     string `yaml:"model"`
		CachePath string `yaml:"cache_path"`
	} `yaml:"embeddings"`

	RAG RAGConfig `yaml:"rag"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint
type LLMConfig struct {
	BaseURL          string        `yaml:"base_url"`
	APIKeyEnv        string        `yaml:"api_key_env"`
	Model            string        `yaml:"model"`
	Temperature      float64       `yaml:"temperature"`
	MaxTokens        int           `yaml:"max_tokens"`
	SummaryMaxTokens int           `yaml:"summary_max_tokens"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
}

// APIKey resolves the API key from the environment variable named by APIKeyEnv.
func (c LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// RAGConfig configures chunking and retrieval for question answering
type RAGConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	Store        string `yaml:"store"`
	PostgresDSN  string `yaml:"postgres_dsn"`
}

// Vector store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Default returns the built-in configuration
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.MaxUploadMB = 100
	config.Server.ArtifactTTL = 15 * time.Minute

	config.Output.Dir = paths.NormalizePath("outputs")

	config.OCR.Languages = []string{"eng", "hin", "fra", "deu", "jpn", "kor"}
	config.OCR.DefaultLanguage = "eng"
	config.OCR.PageSegMode = 6
	config.OCR.Workers = 2

	config.LLM.BaseURL = "https://api.together.xyz/v1"
	config.LLM.APIKeyEnv = "TOGETHER_API_KEY"
	config.LLM.Model = "meta-llama/Llama-Vision-Free"
	config.LLM.Temperature = 0.2
	config.LLM.MaxTokens = 512
	config.LLM.SummaryMaxTokens = 400
	config.LLM.Timeout = 60 * time.Second
	config.LLM.MaxRetries = 4

	config.Embeddings.Model = "togethercomputer/m2-bert-80M-8k-retrieval"
	config.Embeddings.CachePath = filepath.Join(paths.GetConfigDir(), "embeddings.db")

	config.RAG.ChunkSize = 800
	config.RAG.ChunkOverlap = 100
	config.RAG.TopK = 3
	config.RAG.Store = StoreMemory

	config.Logging.Level = "info"
	config.Logging.Format = "text"

	return config
}

// LoadConfig loads configuration from the specified file path. An empty path
// yields the defaults with environment overrides applied.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		if err := paths.ValidatePath(configPath); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Clean(configPath))
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := decodeYAML(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	config.Output.Dir = paths.NormalizePath(config.Output.Dir)
	config.Embeddings.CachePath = paths.NormalizePath(config.Embeddings.CachePath)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// decodeYAML requires the document to be a mapping. An empty file keeps the
// defaults.
func decodeYAML(data []byte, config *Config) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.ShortTag() == "!!null" {
		return nil
	}
	if doc.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: top level must be a mapping of settings", doc.Line)
	}
	return root.Decode(config)
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	if env := os.Getenv("PDF_TOOLBOX_CONFIG"); env != "" && fileExists(env) {
		return env
	}
	for _, name := range []string{"pdf-toolbox.yaml", "pdf-toolbox.yml"} {
		if fileExists(name) {
			return name
		}
	}
	if standard := paths.GetConfigFile(); fileExists(standard) {
		return standard
	}
	return ""
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns the defaults together with the
// load error so callers can report it without aborting.
func LoadConfigOrDefault(configFile string) (*Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fallback, ferr := LoadConfig("")
		if ferr != nil {
			return Default(), err
		}
		return fallback, err
	}
	return cfg, nil
}

// LoadEnvFile reads a dotenv file and exports its keys into the process
// environment. Keys already present in the environment win. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if path == "" || !fileExists(path) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading env file %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("error exporting %s: %w", name, err)
		}
	}
	return nil
}

func applyEnvOverrides(config *Config) error {
	if port := os.Getenv("PDF_TOOLBOX_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PDF_TOOLBOX_PORT %q: %w", port, err)
		}
		config.Server.Port = n
	}
	if v := os.Getenv("PDF_TOOLBOX_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("PDF_TOOLBOX_LLM_BASE_URL"); v != "" {
		config.LLM.BaseURL = v
	}
	if v := os.Getenv("PDF_TOOLBOX_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("PDF_TOOLBOX_RAG_STORE"); v != "" {
		config.RAG.Store = v
	}
	if v := os.Getenv("PDF_TOOLBOX_POSTGRES_DSN"); v != "" {
		config.RAG.PostgresDSN = v
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ValidateConfig checks the configuration for values the tools cannot work with
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.New("configuration cannot be nil")
	}

	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", config.Server.Port)
	}
	if config.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", config.Server.MaxUploadMB)
	}

	if err := validateRAG(config.RAG); err != nil {
		return fmt.Errorf("rag: %w", err)
	}

	if config.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm: max_retries must not be negative, got %d", config.LLM.MaxRetries)
	}

	if len(config.OCR.Languages) == 0 {
		return errors.New("ocr: at least one language is required")
	}
	if !containsString(config.OCR.Languages, config.OCR.DefaultLanguage) {
		return fmt.Errorf("ocr: default language %q is not in the language list", config.OCR.DefaultLanguage)
	}
	if config.OCR.Workers < 1 {
		return fmt.Errorf("ocr: workers must be at least 1, got %d", config.OCR.Workers)
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", config.Logging.Format)
	}

	for _, p := range []string{config.Output.Dir, config.Embeddings.CachePath} {
		if err := paths.ValidatePath(p); err != nil {
			return fmt.Errorf("path validation failed: %w", err)
		}
	}

	return nil
}

func validateRAG(rag RAGConfig) error {
	if rag.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", rag.ChunkSize)
	}
	if rag.ChunkOverlap < 0 || rag.ChunkOverlap >= rag.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", rag.ChunkOverlap)
	}
	if rag.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", rag.TopK)
	}
	switch rag.Store {
	case StoreMemory:
	case StorePostgres:
		if rag.PostgresDSN == "" {
			return errors.New("postgres store requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown store %q", rag.Store)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
