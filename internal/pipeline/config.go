package pipeline

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/util"
)

// CacheMode selects the build cache policy.
type CacheMode string

const (
	// CacheDefault applies neither --no-cache nor registry cache sources.
	CacheDefault CacheMode = "default"
	// CacheDisabled forces a clean rebuild.
	CacheDisabled CacheMode = "disabled"
	// CacheEnabled pulls cache from the stable tags and exports inline cache.
	CacheEnabled CacheMode = "enabled"
)

// Environment keys. Every key is also read through viper so a config file
// or explicit binding can supply it in place of the process environment.
const (
	EnvRegistryPrefix = "ECP_REGISTRY_IMAGE_PREFIX"
	EnvMirrorPrefix   = "ECP_MIRROR_PREFIX"
	EnvRegistryAPI    = "ECP_REGISTRY_API"
	EnvProjectID      = "ECP_REGISTRY_PROJECT_ID"
	EnvToken          = "ECP_REGISTRY_TOKEN"
	EnvPlatform       = "ECP_PLATFORM"
	EnvCacheMode      = "ECP_CACHE_MODE"
	EnvStagingSuffix  = "ECP_STAGING_SUFFIX"
	EnvReleaseVersion = "ECP_RELEASE_VERSION"
	EnvRunID          = "ECP_RUN_ID"
	EnvDryRun         = "ECP_DRY_RUN"
	EnvFamiliesFile   = "ECP_FAMILIES_FILE"
)

const DefaultPlatform = "linux/amd64"

// Config is the immutable pipeline configuration, resolved once and passed
// explicitly to every component. No component reads the process environment
// after this point.
type Config struct {
	// RegistryPrefix is the primary registry image prefix,
	// e.g. "registry.gitlab.com/zairakai/docker-ecosystem".
	RegistryPrefix string
	// MirrorPrefix is the optional Docker Hub mirror prefix; promotion
	// syncs stable tags there best-effort when set.
	MirrorPrefix string
	// RegistryAPI is the base URL of the registry HTTP API used by the
	// staging garbage collector.
	RegistryAPI string
	ProjectID   string
	Token       string

	Platform      string
	CacheMode     CacheMode
	StagingSuffix string
	// ReleaseVersion is the raw release version string ("v1.2.3");
	// parsed by the promoter before any registry call.
	ReleaseVersion string
	RunID          string
	// ContextRoot is the directory holding the family build contexts.
	ContextRoot string
	DryRun      bool

	Families []Family
}

// LoadConfig resolves the pipeline configuration for the given context
// root. Per-command required fields are checked by the callers; LoadConfig
// itself only rejects values that are malformed wherever they are used.
func LoadConfig(contextRoot string) (Config, error) {
	cfg := Config{
		RegistryPrefix: strings.TrimSuffix(interpolate(lookup(EnvRegistryPrefix)), "/"),
		MirrorPrefix:   strings.TrimSuffix(interpolate(lookup(EnvMirrorPrefix)), "/"),
		RegistryAPI:    strings.TrimSuffix(lookup(EnvRegistryAPI), "/"),
		ProjectID:      lookup(EnvProjectID),
		Token:          lookup(EnvToken),
		Platform:       lookup(EnvPlatform),
		StagingSuffix:  lookup(EnvStagingSuffix),
		ReleaseVersion: lookup(EnvReleaseVersion),
		RunID:          lookup(EnvRunID),
		ContextRoot:    contextRoot,
		DryRun:         lookup(EnvDryRun) == "true" || lookup(EnvDryRun) == "1",
	}

	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}
	if cfg.RunID == "" {
		cfg.RunID = "local"
	}
	if cfg.StagingSuffix == "" {
		cfg.StagingSuffix = util.CommitSuffix(contextRoot)
	}
	if cfg.StagingSuffix != "" && !strings.HasPrefix(cfg.StagingSuffix, "-") {
		cfg.StagingSuffix = "-" + cfg.StagingSuffix
	}

	mode, err := parseCacheMode(lookup(EnvCacheMode))
	if err != nil {
		return Config{}, err
	}
	cfg.CacheMode = mode

	families, err := loadFamilies(lookup(EnvFamiliesFile))
	if err != nil {
		return Config{}, err
	}
	cfg.Families = families

	return cfg, nil
}

// FamilyByName returns the configured family, or an error naming the
// known families when it does not exist.
func (c Config) FamilyByName(name string) (Family, error) {
	for _, f := range c.Families {
		if f.Name == name {
			return f, nil
		}
	}
	known := make([]string, len(c.Families))
	for i, f := range c.Families {
		known[i] = f.Name
	}
	return Family{}, fmt.Errorf("unknown image family %q (known: %s)", name, strings.Join(known, ", "))
}

// Require returns an error naming every listed env key whose config value
// is unset. Called by commands before any side effect.
func (c Config) Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		val := ""
		switch key {
		case EnvRegistryPrefix:
			val = c.RegistryPrefix
		case EnvStagingSuffix:
			val = c.StagingSuffix
		case EnvReleaseVersion:
			val = c.ReleaseVersion
		case EnvRegistryAPI:
			val = c.RegistryAPI
		case EnvProjectID:
			val = c.ProjectID
		case EnvToken:
			val = c.Token
		}
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func parseCacheMode(s string) (CacheMode, error) {
	switch CacheMode(s) {
	case "", CacheDefault:
		return CacheDefault, nil
	case CacheDisabled, CacheEnabled:
		return CacheMode(s), nil
	}
	return "", fmt.Errorf("invalid %s %q: want default, disabled or enabled", EnvCacheMode, s)
}

// lookup reads a key from the environment, falling back to viper so tests
// and config files can supply values the same way.
func lookup(key string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return viper.GetString(key)
}

type familiesFile struct {
	Families []Family `yaml:"families"`
}

// loadFamilies reads the family catalog from path, or returns the built-in
// catalog describing the shipped image fleet when path is empty.
func loadFamilies(path string) ([]Family, error) {
	if path == "" {
		return DefaultFamilies(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading families file: %w", err)
	}
	var raw familiesFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing families file %s: %w", path, err)
	}
	if len(raw.Families) == 0 {
		return nil, fmt.Errorf("families file %s declares no families", path)
	}
	for _, f := range raw.Families {
		if f.Name == "" || f.Path == "" || f.Version == "" {
			return nil, fmt.Errorf("families file %s: every family needs name, path and version", path)
		}
	}
	return raw.Families, nil
}

// DefaultFamilies is the built-in catalog of the shipped image fleet.
func DefaultFamilies() []Family {
	return []Family{
		{
			Name: "php", Path: "php", Version: "8.3",
			Stages: []Stage{
				{Name: "prod", Forbid: []string{"xdebug"}, Warn: []string{"composer"}},
				{Name: "dev", Require: []string{"xdebug", "composer"}},
				{Name: "test", Require: []string{"xdebug", "phpunit"}},
			},
		},
		{
			Name: "node", Path: "node", Version: "20",
			Stages: []Stage{
				{Name: "prod", Forbid: []string{"node-inspect"}, Warn: []string{"npm"}},
				{Name: "dev", Require: []string{"npm"}},
				{Name: "test", Require: []string{"npm", "jest"}},
			},
		},
		{Name: "database", Path: "database", Version: "mysql-8.0"},
		{Name: "web", Path: "web", Version: "nginx-1.27"},
		{Name: "services", Path: "services", Version: "1.0"},
	}
}

// reVarDefault matches ${VAR:-default}.
var reVarDefault = regexp.MustCompile(`\$\{([^}:]+):-([^}]*)\}`)

// interpolate expands environment variable references in s:
//   - ${VAR} and $VAR   → value of VAR, empty if unset
//   - ${VAR:-default}   → value of VAR if set and non-empty, else "default"
func interpolate(s string) string {
	result := reVarDefault.ReplaceAllStringFunc(s, func(match string) string {
		sub := reVarDefault.FindStringSubmatch(match)
		if len(sub) != 3 {
			return match
		}
		key, defaultVal := sub[1], sub[2]
		if v := os.Getenv(key); v != "" {
			return v
		}
		return defaultVal
	})
	return strings.TrimSpace(os.ExpandEnv(result))
}
