package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/platerecon/internal/flagx"
	"github.com/dmitrijs2005/platerecon/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Durations accept
// either "30m" style strings or integer nanoseconds. Zero values leave the
// current setting untouched.
type FileConfig struct {
	HTTPAddr           string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr           string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN        string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey          string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenTTL     timex.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	BcryptCost         int            `json:"bcrypt_cost" yaml:"bcrypt_cost"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
	ModelDir           string         `json:"model_dir" yaml:"model_dir"`
	ModelPattern       string         `json:"model_pattern" yaml:"model_pattern"`
	ONNXRuntimeLib     string         `json:"onnxruntime_lib" yaml:"onnxruntime_lib"`
	SerializeInference *bool          `json:"serialize_inference" yaml:"serialize_inference"`
	InputHeight        int            `json:"input_height" yaml:"input_height"`
	InputWidth         int            `json:"input_width" yaml:"input_width"`
	MaxUploadBytes     int64          `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	MaxImagePixels     int64          `json:"max_image_pixels" yaml:"max_image_pixels"`
	RateLimitRequests  int            `json:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow    timex.Duration `json:"rate_limit_window" yaml:"rate_limit_window"`
	S3AccessKey        string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey        string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket           string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region           string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
}

// parseFile overlays the file given with -c/-config. The format is chosen by
// extension: .yaml/.yml use YAML, anything else JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCAddr, fc.GRPCAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.ModelDir, fc.ModelDir)
	setString(&c.ModelPattern, fc.ModelPattern)
	setString(&c.ONNXRuntimeLib, fc.ONNXRuntimeLib)
	setString(&c.S3AccessKey, fc.S3AccessKey)
	setString(&c.S3SecretKey, fc.S3SecretKey)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)

	if fc.AccessTokenTTL.Duration > 0 {
		c.AccessTokenTTL = fc.AccessTokenTTL.Duration
	}
	if fc.RateLimitWindow.Duration > 0 {
		c.RateLimitWindow = fc.RateLimitWindow.Duration
	}
	if fc.BcryptCost > 0 {
		c.BcryptCost = fc.BcryptCost
	}
	if fc.InputHeight > 0 {
		c.InputHeight = fc.InputHeight
	}
	if fc.InputWidth > 0 {
		c.InputWidth = fc.InputWidth
	}
	if fc.MaxUploadBytes > 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.MaxImagePixels > 0 {
		c.MaxImagePixels = fc.MaxImagePixels
	}
	if fc.RateLimitRequests > 0 {
		c.RateLimitRequests = fc.RateLimitRequests
	}
	if fc.SerializeInference != nil {
		c.SerializeInference = *fc.SerializeInference
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
