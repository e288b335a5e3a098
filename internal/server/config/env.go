package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded (without overriding the real environment) before the
// variables below are read. A missing file is not an error.
var envFile = ".env"

// parseEnv overlays settings from environment variables.
//
//	DATABASE_URL, SECRET_KEY, ACCESS_TOKEN_EXPIRE_MINUTES, HTTP_ADDR, GRPC_ADDR,
//	LOG_LEVEL, MODEL_DIR, MODEL_PATTERN, ONNXRUNTIME_LIB, SERIALIZE_INFERENCE,
//	MAX_IMAGE_PIXELS, S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
func parseEnv(config *Config) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	lookupString(&config.DatabaseDSN, "DATABASE_URL")
	lookupString(&config.SecretKey, "SECRET_KEY")
	lookupString(&config.HTTPAddr, "HTTP_ADDR")
	lookupString(&config.GRPCAddr, "GRPC_ADDR")
	lookupString(&config.LogLevel, "LOG_LEVEL")
	lookupString(&config.ModelDir, "MODEL_DIR")
	lookupString(&config.ModelPattern, "MODEL_PATTERN")
	lookupString(&config.ONNXRuntimeLib, "ONNXRUNTIME_LIB")
	lookupString(&config.S3AccessKey, "S3_ACCESS_KEY")
	lookupString(&config.S3SecretKey, "S3_SECRET_KEY")
	lookupString(&config.S3Bucket, "S3_BUCKET")
	lookupString(&config.S3Region, "S3_REGION")
	lookupString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")

	if v, ok := os.LookupEnv("ACCESS_TOKEN_EXPIRE_MINUTES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %q", v)
		}
		config.AccessTokenTTL = time.Duration(n) * time.Minute
	}

	if v, ok := os.LookupEnv("MAX_IMAGE_PIXELS"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_IMAGE_PIXELS: %q", v)
		}
		config.MaxImagePixels = n
	}

	if v, ok := os.LookupEnv("SERIALIZE_INFERENCE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SERIALIZE_INFERENCE: %q", v)
		}
		config.SerializeInference = b
	}

	return nil
}

func lookupString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
