package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the callbridge directories.
type Paths struct {
	HomeDir string

	// DataOverride replaces the default data directory when set.
	DataOverride string
}

// NewPaths returns the paths for the current user.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// ForContext returns the paths of ctx, honoring its data directory.
func (p *Paths) ForContext(ctx *Context) *Paths {
	out := *p
	if ctx != nil && ctx.DataDir != "" {
		out.DataOverride = ctx.DataDir
	}
	return &out
}

// BaseDir returns ~/.callbridge.
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns ~/.callbridge/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns the data directory (~/.callbridge/data by default).
func (p *Paths) DataDir() string {
	if p.DataOverride != "" {
		return p.DataOverride
	}
	return filepath.Join(p.BaseDir(), "data")
}

// PromptCacheDir returns the directory of the rendered-prompt store.
func (p *Paths) PromptCacheDir() string {
	return filepath.Join(p.DataDir(), "prompts")
}

// EnsureDataDir creates the data directory.
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0o755)
}
