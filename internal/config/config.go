package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"betra/internal/catalog"
	"betra/internal/classify"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration structure.
// It defines where modules live, how they are classified, which of them are
// mandatory and where presets, output and the ledger are kept.
type Config struct {
	Directories    Directories    `yaml:"directories"`
	Catalog        CatalogConfig  `yaml:"catalog"`
	Classification Classification `yaml:"classification"`
	Presets        PresetConfig   `yaml:"presets"`
	Output         OutputConfig   `yaml:"output"`
	Ledger         LedgerConfig   `yaml:"ledger"`
	Watch          WatchConfig    `yaml:"watch"`
}

// Directories holds the module source and output locations.
type Directories struct {
	Modules string `yaml:"modules"` // Directory scanned for module documents
	Output  string `yaml:"output"`  // Default directory for composed documents
}

// CatalogConfig controls module discovery.
type CatalogConfig struct {
	Extension   string   `yaml:"extension"`    // Document extension, including the dot
	Exclude     []string `yaml:"exclude"`      // Glob patterns of filenames to ignore
	CoverPrefix string   `yaml:"cover_prefix"` // Filename prefix of cover pages; empty disables the partition
	Mandatory   []string `yaml:"mandatory"`    // Exact filenames that are always selected
}

// Classification maps filenames to group keys and display buckets.
type Classification struct {
	RichChapter    string         `yaml:"rich_chapter"`     // Chapter split into sub-groups
	Groups         []string       `yaml:"groups"`           // Recognized group keys
	Buckets        map[string]int `yaml:"buckets"`          // Group key to display bucket
	CatchAllBucket int            `yaml:"catch_all_bucket"` // Bucket for unknown group keys
}

// PresetConfig locates the preset store.
type PresetConfig struct {
	Path  string `yaml:"path"`  // Preset store file
	Slots int    `yaml:"slots"` // Number of editable preset slots
}

// OutputConfig holds composition output defaults.
type OutputConfig struct {
	DefaultName string `yaml:"default_name"` // Filename used when no output is given
}

// LedgerConfig controls the optional composition ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WatchConfig controls directory watching.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"` // Quiet period before a rescan
}

// Dir returns the betra configuration directory (~/.config/betra).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".betra"
	}
	return filepath.Join(home, ".config", "betra")
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// LoadConfig loads configuration from the default location
// (~/.config/betra/config.yaml).
func LoadConfig() (*Config, error) {
	return LoadConfigFile(DefaultPath())
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Unmarshal into a temporary config to preserve defaults for unset fields
	var tempCfg Config
	if err := yaml.Unmarshal(data, &tempCfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if tempCfg.Directories.Modules != "" {
		cfg.Directories.Modules = tempCfg.Directories.Modules
	}
	if tempCfg.Directories.Output != "" {
		cfg.Directories.Output = tempCfg.Directories.Output
	}

	if tempCfg.Catalog.Extension != "" {
		cfg.Catalog.Extension = tempCfg.Catalog.Extension
	}
	if tempCfg.Catalog.Exclude != nil {
		cfg.Catalog.Exclude = tempCfg.Catalog.Exclude
	}
	if tempCfg.Catalog.CoverPrefix != "" {
		cfg.Catalog.CoverPrefix = tempCfg.Catalog.CoverPrefix
	}
	if tempCfg.Catalog.Mandatory != nil {
		cfg.Catalog.Mandatory = tempCfg.Catalog.Mandatory
	}

	if tempCfg.Classification.RichChapter != "" {
		cfg.Classification.RichChapter = tempCfg.Classification.RichChapter
	}
	if len(tempCfg.Classification.Groups) > 0 {
		cfg.Classification.Groups = tempCfg.Classification.Groups
	}
	if len(tempCfg.Classification.Buckets) > 0 {
		cfg.Classification.Buckets = tempCfg.Classification.Buckets
		cfg.Classification.CatchAllBucket = tempCfg.Classification.CatchAllBucket
	}

	if tempCfg.Presets.Path != "" {
		cfg.Presets.Path = tempCfg.Presets.Path
	}
	if tempCfg.Presets.Slots > 0 {
		cfg.Presets.Slots = tempCfg.Presets.Slots
	}

	if tempCfg.Output.DefaultName != "" {
		cfg.Output.DefaultName = tempCfg.Output.DefaultName
	}

	cfg.Ledger.Enabled = tempCfg.Ledger.Enabled
	if tempCfg.Ledger.Path != "" {
		cfg.Ledger.Path = tempCfg.Ledger.Path
	}

	if tempCfg.Watch.DebounceMS > 0 {
		cfg.Watch.DebounceMS = tempCfg.Watch.DebounceMS
	}

	cfg.Directories.Modules = expandHome(cfg.Directories.Modules)
	cfg.Directories.Output = expandHome(cfg.Directories.Output)
	cfg.Presets.Path = expandHome(cfg.Presets.Path)
	cfg.Ledger.Path = expandHome(cfg.Ledger.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns the default configuration: the module set, mandatory
// list and chapter layout of the construction-site operating instructions.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Directories.Modules = "modules"
	cfg.Directories.Output = "output"

	cfg.Catalog.Extension = ".docx"
	cfg.Catalog.Exclude = []string{"~$*", ".*"} // Word owner files and hidden files
	cfg.Catalog.CoverPrefix = "0."
	cfg.Catalog.Mandatory = DefaultMandatory()

	cfg.Classification.RichChapter = "5"
	cfg.Classification.Groups = []string{
		"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
		"5.1", "5.2", "5.3", "5.4",
	}
	cfg.Classification.Buckets = map[string]int{
		"1": 0, "2": 0,
		"3": 1, "4": 1,
		"5": 2, "5.1": 2,
		"5.2": 3,
		"5.3": 4,
		"5.4": 5,
		"6": 6, "7": 6, "8": 6, "9": 6,
	}
	cfg.Classification.CatchAllBucket = 7

	cfg.Presets.Path = filepath.Join(Dir(), "presets.yaml")
	cfg.Presets.Slots = 6

	cfg.Output.DefaultName = "Betra_Zusammenstellung.docx"

	cfg.Ledger.Enabled = false
	cfg.Ledger.Path = filepath.Join(Dir(), "ledger.db")

	cfg.Watch.DebounceMS = 500

	return cfg
}

// DefaultMandatory lists the modules every composition must contain.
func DefaultMandatory() []string {
	return []string{
		"0.0.0 - Deckblatt.docx",
		"1.0.0 - Lage der Baustelle, Lageplanskizze.docx",
		"2.1.0 - Arbeitszeit.docx",
		"2.2.0 - Dauer der Gleissperrungen, gesperrte Gleise, Weichen.docx",
		"3.0.0 - Geschwindigkeitseinschränkungen und andere Besonderheiten für Zugfahrten.docx",
		"4.0.0 - Zuständige Berechtigte.docx",
		"4.1.0 - Fahrdienstleiter-Weichenwärter-Zugleiter-BözM.docx",
		"4.2.0 - Technischer Berechtigter - UV-Berechtigter.docx",
		"5.0.0 - Betriebliche Regelungen.docx",
		"5.1.0 - Regelungen für die Sicherung des Bahnbetriebes.docx",
		"5.1.1 - Grundsatz.docx",
		"5.1.2 - Fernmündliche Aufträge und Meldungen.docx",
		"5.1.3 - Beginn der Arbeiten.docx",
		"5.2.0 - Regelungen für die Durchführung des Bahnbetriebes.docx",
		"5.2.15 - Außergewöhnliche Sendungen, Fahrzeuge, Züge.docx",
		"5.3.0 - Regelungen für das gesperrte Gleis - Baugleis - unterbrochene Arbeitszeit - Ortsstellbereiche.docx",
		"5.3.1 - Infrastrukturparameter.docx",
		"5.4.0 - Regelungen für den Einsatz von Schienenfahrzeugen, Maschinen und Geräten und deren besonderen Einsatzbedingungen.docx",
		"5.4.1 - Grundsätze.docx",
		"6.0.0 - Sicherung der Beschäftigten.docx",
		"6.1.0 - Arbeiten im Gleisbereich.docx",
		"6.2.0 - Arbeiten an oder in der Nähe von aktiven Teilen der Oberleitungsanlage.docx",
		"7.0.0 - Verantwortliche.docx",
		"8.0.0 - Angaben zur Bautechnologie-Bauablauf-Baustellenlogistik.docx",
		"9.0.0 - Sonstige Angaben.docx",
		"9.1.0 - Anlagen - Zugestimmt - Verteiler.docx",
	}
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
// Returns error if any settings are invalid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}

	if c.Directories.Modules == "" {
		return fmt.Errorf("modules directory is required")
	}

	if !strings.HasPrefix(c.Catalog.Extension, ".") || len(c.Catalog.Extension) < 2 {
		return fmt.Errorf("invalid extension %q: must start with a dot", c.Catalog.Extension)
	}
	for i, pattern := range c.Catalog.Exclude {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude %d: invalid pattern %q: %w", i, pattern, err)
		}
	}
	for i, name := range c.Catalog.Mandatory {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("mandatory %d: filename is required", i)
		}
	}

	for i, group := range c.Classification.Groups {
		if group == "" {
			return fmt.Errorf("group %d: key is required", i)
		}
	}
	for key, bucket := range c.Classification.Buckets {
		if bucket < 0 {
			return fmt.Errorf("bucket for %q must be >= 0", key)
		}
	}
	if c.Classification.CatchAllBucket < 0 {
		return fmt.Errorf("catch-all bucket must be >= 0")
	}

	// Preset slots are bound to the digit keys 1-9
	if c.Presets.Slots < 1 || c.Presets.Slots > 9 {
		return fmt.Errorf("preset slots must be between 1 and 9, got %d", c.Presets.Slots)
	}

	if c.Output.DefaultName == "" {
		return fmt.Errorf("default output name is required")
	}

	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger path is required when the ledger is enabled")
	}

	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch debounce must be >= 0")
	}

	return nil
}

// ScannerOptions builds the catalog scanner settings from the configuration.
func (c *Config) ScannerOptions() catalog.Options {
	return catalog.Options{
		Extension:   c.Catalog.Extension,
		Exclude:     c.Catalog.Exclude,
		CoverPrefix: c.Catalog.CoverPrefix,
		Mandatory:   c.Catalog.Mandatory,
		Resolver:    classify.NewResolver(c.Classification.RichChapter, c.Classification.Groups),
		Buckets:     classify.NewBuckets(c.Classification.Buckets, c.Classification.CatchAllBucket),
	}
}

// OutputPath returns the default destination of a composition.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Directories.Output, c.Output.DefaultName)
}

// NewTestConfig creates a configuration instance for testing purposes.
func NewTestConfig(modulesDir string) *Config {
	cfg := defaultConfig()
	cfg.Directories.Modules = modulesDir
	cfg.Directories.Output = filepath.Join(modulesDir, "output")
	cfg.Presets.Path = filepath.Join(modulesDir, "presets.yaml")
	cfg.Ledger.Path = filepath.Join(modulesDir, "ledger.db")
	cfg.Catalog.Mandatory = []string{}
	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
