package trust

import (
	"fmt"
	"strings"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/infra/confloader"
)

// LoadRuntimeConfig builds the runtime configuration checked for drift.
//
// The YAML file at path (optional) is flattened with "." between nested
// keys. Values keep the text written in the file. Each override is
// "key=value" and wins over the file.
func LoadRuntimeConfig(path string, overrides []string) (map[string]string, error) {
	l := confloader.NewLoader(confloader.WithRawScalars())
	if err := l.LoadFile(path); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("runtime configuration").WithCause(err)
	}

	if len(overrides) > 0 {
		set, err := ParseOverrides(overrides)
		if err != nil {
			return nil, err
		}
		if err := l.LoadMap(set); err != nil {
			return nil, domain.ErrInvalidArgument.WithCause(err)
		}
	}

	flat, err := l.Flatten()
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("runtime configuration").WithCause(err)
	}
	return flat, nil
}

// ParseOverrides parses "key=value" pairs. Values may be empty; keys may not.
func ParseOverrides(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("override %q is not key=value", p))
		}
		out[k] = v
	}
	return out, nil
}
