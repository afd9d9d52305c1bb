package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/animus-labs/tfbridge/internal/platform/env"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	// BucketReports holds the raw JUnit reports written by the pipeline.
	BucketReports string
	// KeyTemplate locates a run's report; {run_id} is substituted.
	KeyTemplate string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("REPORTS_S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:      env.String("REPORTS_S3_ENDPOINT", "localhost:9000"),
		AccessKey:     env.String("REPORTS_S3_ACCESS_KEY", ""),
		SecretKey:     env.String("REPORTS_S3_SECRET_KEY", ""),
		Region:        env.String("REPORTS_S3_REGION", "us-east-1"),
		UseSSL:        useSSL,
		BucketReports: env.String("REPORTS_S3_BUCKET", "test-results"),
		KeyTemplate:   env.String("REPORTS_S3_KEY_TEMPLATE", "{run_id}/junit.xml"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketReports) == "" {
		return errors.New("reports bucket is required")
	}
	if !strings.Contains(c.KeyTemplate, "{run_id}") {
		return fmt.Errorf("key template must contain {run_id}: %q", c.KeyTemplate)
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}

// Key returns the object key of a run's report.
func (c Config) Key(runID string) string {
	return strings.ReplaceAll(c.KeyTemplate, "{run_id}", strings.TrimSpace(runID))
}
