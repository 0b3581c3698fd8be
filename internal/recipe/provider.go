package recipe

import (
	"fmt"
	"sort"

	"github.com/fontpipe/fontpipe/internal/config"
	"github.com/fontpipe/fontpipe/internal/source"
)

// Provider expands a configuration and its described sources into a Recipe.
// Implementations must be stateless; one value serves all runs.
type Provider interface {
	Recipe(cfg *config.Config, sources []*source.Source) (Recipe, error)
}

var providers = map[string]Provider{}

// RegisterProvider adds a named provider. Registering a name twice is an
// error so out-of-tree providers cannot silently shadow built-ins.
func RegisterProvider(name string, p Provider) error {
	if _, dup := providers[name]; dup {
		return fmt.Errorf("recipe provider %q already registered", name)
	}
	providers[name] = p
	return nil
}

func mustRegister(name string, p Provider) {
	if err := RegisterProvider(name, p); err != nil {
		panic(err)
	}
}

// Resolve looks up a provider by name.
func Resolve(name string) (Provider, error) {
	p, ok := providers[name]
	if !ok {
		return nil, &config.Error{
			Field: "recipeProvider",
			Err:   fmt.Errorf("unknown recipe provider %q (have %v)", name, ProviderNames()),
		}
	}
	return p, nil
}

// ProviderNames lists registered providers, sorted.
func ProviderNames() []string {
	out := make([]string, 0, len(providers))
	for name := range providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
