package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/call"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/realtime"
)

// Directory maps start events to call profiles. It is read-only after
// construction and safe for concurrent use.
type Directory struct {
	file    *File
	clients map[string]*realtime.Client
	logger  *slog.Logger
}

// NewDirectory binds the tenant file to realtime clients keyed by provider
// name. Every AI tenant's provider must have a client.
func NewDirectory(f *File, clients map[string]*realtime.Client, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, t := range f.Tenants {
		if t.Mode != call.ModeAI {
			continue
		}
		if clients[t.Provider] == nil {
			return nil, fmt.Errorf("tenant %q: no credentials for provider %q", t.ID, t.Provider)
		}
	}
	return &Directory{file: f, clients: clients, logger: logger}, nil
}

// File returns the tenant file.
func (d *Directory) File() *File {
	return d.file
}

// Select picks the tenant for a stream.
func (d *Directory) Select(ctx context.Context, info *bridge.StartInfo) (*Tenant, error) {
	id, err := d.file.Selector.Select(ctx, info)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = d.file.Default
	}
	if id == "" {
		return nil, fmt.Errorf("%w: selector matched nothing and no default is set", ErrUnknownTenant)
	}
	t, ok := d.file.Find(id)
	if !ok {
		if d.file.Default == "" || id == d.file.Default {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTenant, id)
		}
		d.logger.Warn("unknown tenant, using default", "tenant", id, "default", d.file.Default)
		t, _ = d.file.Find(d.file.Default)
	}
	return t, nil
}

// Resolve implements call.Resolver.
func (d *Directory) Resolve(ctx context.Context, info *bridge.StartInfo) (*call.Profile, error) {
	t, err := d.Select(ctx, info)
	if err != nil {
		return nil, err
	}
	return d.Profile(t), nil
}

// Profile builds the call profile of t.
func (d *Directory) Profile(t *Tenant) *call.Profile {
	p := &call.Profile{
		Tenant:   t.ID,
		Mode:     t.Mode,
		Greeting: t.Greeting,
		WrapUp:   t.WrapUp,
		Apology:  t.Apology,
		Playback: t.Playback,
		Session: realtime.Session{
			Model:        t.Model,
			Voice:        t.Voice,
			SystemPrompt: t.SystemPrompt,
			Temperature:  t.Temperature,
		},
		Config: d.file.TuningFor(t),
	}
	if t.Mode == call.ModeAI {
		p.Client = d.clients[t.Provider]
	}
	return p
}

// Apologies returns the apology text of every tenant grouped by voice, so
// the prompts can be rendered ahead of the first failure.
func (d *Directory) Apologies() map[string][]string {
	out := make(map[string][]string)
	for _, t := range d.file.Tenants {
		text := t.Apology
		if text == "" {
			text = call.DefaultApology
		}
		voice := t.Voice
		if !slices.Contains(out[voice], text) {
			out[voice] = append(out[voice], text)
		}
		if t.Mode == call.ModePlayback && !slices.Contains(out[voice], t.Playback) {
			out[voice] = append(out[voice], t.Playback)
		}
	}
	return out
}
