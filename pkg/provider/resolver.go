package provider

import (
	"net/url"
	"strings"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/dataprov/dataprov/pkg/provider/status"
	"github.com/dataprov/dataprov/pkg/source"
	"go.uber.org/zap"
)

// ResolverConfig wires the providers a project can reach
type ResolverConfig struct {
	// ZenodoBase resolves Zenodo DOIs; record URLs carry their own instance.
	// Defaults to https://zenodo.org.
	ZenodoBase string

	// DataverseBase resolves plain DOIs; dataset URLs carry their own
	// instance. Leaving it empty rejects DOI references to Dataverse.
	DataverseBase string

	// Repo enables project-to-project references when set
	Repo source.Repository

	// Client overrides the HTTP client used by API calls
	Client Doer

	// Token is presented on authenticated calls
	Token string

	Logger *zap.Logger
}

// NewResolver builds the provider selection: references are pattern-matched
// against each provider's grammar, most specific first
func NewResolver(cfg ResolverConfig) core.ProviderResolver {
	if cfg.ZenodoBase == "" {
		cfg.ZenodoBase = "https://zenodo.org"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	opts := []ClientOption{
		HTTPClient(cfg.Client),
		AccessToken(cfg.Token),
		ClientLogger(cfg.Logger),
	}

	return func(uri string) (core.ProviderClient, error) {
		switch {
		case zenodoHandles(uri):
			return NewZenodo(instanceBase(uri, cfg.ZenodoBase), opts...), nil
		case cfg.Repo != nil && projectHandles(uri):
			return NewProject(cfg.Repo), nil
		case dataverseHandles(uri):
			base := instanceBase(uri, cfg.DataverseBase)
			if base == "" {
				return nil, status.ErrNotSupported.WrapMessage(
					"DOI %q needs a configured Dataverse instance", uri)
			}
			return NewDataverse(base, opts...), nil
		default:
			return nil, status.ErrNotSupported.WrapMessage("reference %q", uri)
		}
	}
}

// instanceBase derives the provider instance from a reference URL, falling
// back to the configured base for bare DOIs
func instanceBase(uri, fallback string) string {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return fallback
	}
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return fallback
	}
	return u.Scheme + "://" + u.Host
}
