package tenant

import (
	"context"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
)

// Selector is a compiled jq expression that names the tenant of a call.
type Selector struct {
	Expr string
	code *gojq.Code
}

// ParseSelector compiles expr.
func ParseSelector(expr string) (Selector, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return Selector{}, fmt.Errorf("tenant: invalid selector %q: %w", expr, err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return Selector{}, fmt.Errorf("tenant: compile selector %q: %w", expr, err)
	}
	return Selector{Expr: expr, code: code}, nil
}

// IsZero reports whether no expression is set.
func (s Selector) IsZero() bool {
	return s.code == nil
}

// MarshalYAML implements yaml.BytesMarshaler.
func (s Selector) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(s.Expr)
}

// UnmarshalYAML implements yaml.BytesUnmarshaler.
func (s *Selector) UnmarshalYAML(b []byte) error {
	var expr string
	if err := yaml.Unmarshal(b, &expr); err != nil {
		return err
	}
	if expr == "" {
		*s = Selector{}
		return nil
	}
	parsed, err := ParseSelector(expr)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Select evaluates the selector over the start event and returns the
// tenant id, or "" when the expression yields null, false or nothing.
func (s Selector) Select(ctx context.Context, info *bridge.StartInfo) (string, error) {
	if s.code == nil {
		return "", nil
	}
	iter := s.code.RunWithContext(ctx, startInput(info))
	v, ok := iter.Next()
	if !ok {
		return "", nil
	}
	switch v := v.(type) {
	case error:
		return "", fmt.Errorf("tenant: selector %q: %w", s.Expr, v)
	case nil:
		return "", nil
	case bool:
		if !v {
			return "", nil
		}
	case string:
		return v, nil
	}
	return "", fmt.Errorf("tenant: selector %q yielded %T, want string", s.Expr, v)
}

// startInput converts the start event into the generic values gojq
// operates on.
func startInput(info *bridge.StartInfo) map[string]any {
	if info == nil {
		return map[string]any{}
	}
	params := make(map[string]any, len(info.CustomParameters))
	for k, v := range info.CustomParameters {
		params[k] = v
	}
	tracks := make([]any, len(info.Tracks))
	for i, t := range info.Tracks {
		tracks[i] = t
	}
	return map[string]any{
		"streamSid":        info.StreamSID,
		"callSid":          info.CallSID,
		"accountSid":       info.AccountSID,
		"tracks":           tracks,
		"customParameters": params,
	}
}
