package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the configuration directory under the home directory.
	DefaultBaseDir = ".callbridge"
	// DefaultConfigFile is the configuration filename.
	DefaultConfigFile = "config.yaml"
	// DefaultListen is the listen address when a context sets none.
	DefaultListen = ":8080"
)

// ErrNoContext is returned when no context is selected.
var ErrNoContext = errors.New("cli: no current context set")

// Config is the contents of the configuration file.
type Config struct {
	// CurrentContext is the name of the active context.
	CurrentContext string `yaml:"current_context,omitempty" json:"current_context,omitempty"`

	Contexts map[string]*Context `yaml:"contexts,omitempty" json:"contexts,omitempty"`

	configPath string
}

// Context is one deployment of the bridge.
type Context struct {
	Name string `yaml:"name" json:"name"`

	OpenAI *Credentials `yaml:"openai,omitempty" json:"openai,omitempty"`
	Gemini *Credentials `yaml:"gemini,omitempty" json:"gemini,omitempty"`

	// Listen is the HTTP listen address of serve.
	Listen string `yaml:"listen,omitempty" json:"listen,omitempty"`

	// TenantFile is the path of the tenant file.
	TenantFile string `yaml:"tenant_file,omitempty" json:"tenant_file,omitempty"`

	// DataDir holds the prompt cache. Empty uses ~/.callbridge/data.
	DataDir string `yaml:"data_dir,omitempty" json:"data_dir,omitempty"`

	// SpeechModel overrides the model used to render prompts.
	SpeechModel string `yaml:"speech_model,omitempty" json:"speech_model,omitempty"`
}

// Credentials authenticate against one vendor.
type Credentials struct {
	APIKey string `yaml:"api_key" json:"api_key"`

	// BaseURL overrides the vendor endpoint (optional).
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// DefaultConfigPath returns ~/.callbridge/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultBaseDir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration at path, or at DefaultConfigPath when
// path is empty. A missing file yields an empty configuration that is
// written on the first Save.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		ctx.Name = name
	}
	cfg.configPath = path
	return cfg, nil
}

// Save writes the configuration with owner-only permissions.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context and saves. The first context added
// becomes current.
func (c *Config) AddContext(name string, ctx *Context) error {
	if name == "" {
		return errors.New("cli: context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context and saves.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context and saves.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns the named context.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one when name
// is empty.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		if c.CurrentContext == "" {
			return nil, ErrNoContext
		}
		name = c.CurrentContext
	}
	return c.GetContext(name)
}

// ListContexts returns the context names in order.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListenAddr returns the listen address, defaulting to DefaultListen.
func (ctx *Context) ListenAddr() string {
	if ctx.Listen == "" {
		return DefaultListen
	}
	return ctx.Listen
}

// Masked returns a copy safe for display, with API keys masked.
func (ctx *Context) Masked() *Context {
	out := *ctx
	if ctx.OpenAI != nil {
		c := *ctx.OpenAI
		c.APIKey = MaskAPIKey(c.APIKey)
		out.OpenAI = &c
	}
	if ctx.Gemini != nil {
		c := *ctx.Gemini
		c.APIKey = MaskAPIKey(c.APIKey)
		out.Gemini = &c
	}
	return &out
}

// MaskAPIKey masks all but the first and last four characters.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
