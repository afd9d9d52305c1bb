// Package config loads operator configuration from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/animus-labs/tfbridge/internal/platform/env"
	"github.com/animus-labs/tfbridge/internal/reconcile"
	"github.com/animus-labs/tfbridge/internal/results"
	"github.com/animus-labs/tfbridge/internal/translate"
)

type EngineKind string

const (
	EngineTekton EngineKind = "tekton"
	EngineTkn    EngineKind = "tkn"
)

type RegistryBackend string

const (
	RegistryPostgres RegistryBackend = "postgres"
	RegistrySQLite   RegistryBackend = "sqlite"
	RegistryMemory   RegistryBackend = "memory"
)

type ReportsBackend string

const (
	ReportsFile ReportsBackend = "file"
	ReportsS3   ReportsBackend = "s3"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	Namespace          string
	ExportersNamespace string

	Engine      EngineKind
	TknBin      string
	ErrorPolicy reconcile.ErrorPolicy

	Registry RegistryBackend
	Reports  ReportsBackend
	// ReportsPath is the file backend's path template.
	ReportsPath string

	// UpstreamURL is the Test API that requests outside the bridge's scope
	// are forwarded to. Empty disables forwarding.
	UpstreamURL string

	Translate translate.Defaults
	Links     results.Links
	Reasons   map[string]reconcile.Verdict
	// InventoryBoardTypes limits the board types served by the inventory
	// route.
	InventoryBoardTypes []string
}

func FromEnv() (Config, error) {
	shutdownTimeout, err := env.Duration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	timeout, err := env.Duration("TIMEOUT", 0)
	if err != nil {
		return Config{}, err
	}
	policy, err := reconcile.ParseErrorPolicy(env.String("ENGINE_ERROR_POLICY", string(reconcile.PolicyDegrade)))
	if err != nil {
		return Config{}, err
	}

	namespace := env.String("POD_NAMESPACE", "")
	cfg := Config{
		HTTPAddr:           env.String("HTTP_ADDR", ":8080"),
		ShutdownTimeout:    shutdownTimeout,
		Namespace:          namespace,
		ExportersNamespace: env.String("EXPORTERS_NAMESPACE", namespace),
		Engine:             EngineKind(strings.ToLower(env.String("ENGINE", string(EngineTekton)))),
		TknBin:             env.String("TKN_BIN", "tkn"),
		ErrorPolicy:        policy,
		Registry:           RegistryBackend(strings.ToLower(env.String("REGISTRY_BACKEND", string(RegistrySQLite)))),
		Reports:            ReportsBackend(strings.ToLower(env.String("REPORTS_BACKEND", string(ReportsFile)))),
		ReportsPath:        env.String("REPORTS_PATH_TEMPLATE", "/results/{run_id}/junit.xml"),
		UpstreamURL:        strings.TrimRight(env.String("TF_API_URL", ""), "/"),
		Translate: translate.Defaults{
			Pipeline:         env.String("PIPELINE", ""),
			BoardType:        env.FirstString("", "BOARD-TYPE", "BOARD_TYPE"),
			Board:            env.String("BOARD", ""),
			ImageURL:         env.String("IMAGE_URL", ""),
			TMTImage:         env.String("TMT_IMAGE", ""),
			LeaseID:          env.String("LEASE_ID", ""),
			SkipProvisioning: env.String("SKIP_PROVISIONING", translate.DefaultSkipProvisioning),
			ClientName:       env.String("CLIENT_NAME", translate.DefaultClientName),
			ServiceAccount:   env.String("SERVICE_ACCOUNT", translate.DefaultServiceAccount),
			SecretWorkspace:  env.String("CLIENT_SECRET_NAME", translate.DefaultSecretWorkspace),
			ResultsClaim:     env.String("RESULTS_CLAIM", translate.DefaultResultsClaim),
			Timeout:          timeout,
			Boards:           translate.DefaultBoardTypes(),
		},
		Links:               results.DefaultLinks(env.String("ARTIFACTS_BASE_URL", results.DefaultArtifactsBaseURL)),
		InventoryBoardTypes: env.List("INVENTORY_BOARD_TYPES", nil),
	}
	return cfg, nil
}

// Load reads the environment and layers the YAML file at path over it when
// path is non-empty.
func Load(path string) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if path = strings.TrimSpace(path); path != "" {
		file, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := file.Apply(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("HTTP_ADDR is required")
	}
	if strings.TrimSpace(c.Translate.Pipeline) == "" {
		return errors.New("PIPELINE is required")
	}
	switch c.Engine {
	case EngineTekton, EngineTkn:
	default:
		return fmt.Errorf("ENGINE must be one of: tekton, tkn (got %q)", c.Engine)
	}
	switch c.Registry {
	case RegistryPostgres, RegistrySQLite, RegistryMemory:
	default:
		return fmt.Errorf("REGISTRY_BACKEND must be one of: postgres, sqlite, memory (got %q)", c.Registry)
	}
	switch c.Reports {
	case ReportsFile, ReportsS3:
	default:
		return fmt.Errorf("REPORTS_BACKEND must be one of: file, s3 (got %q)", c.Reports)
	}
	if c.Reports == ReportsFile && !strings.Contains(c.ReportsPath, "{run_id}") {
		return fmt.Errorf("REPORTS_PATH_TEMPLATE must contain {run_id}: %q", c.ReportsPath)
	}
	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("TF_API_URL must be an absolute url: %q", c.UpstreamURL)
		}
	}
	return nil
}
