package provider

import (
	"context"

	"github.com/dataprov/dataprov/pkg/core"
	"github.com/dataprov/dataprov/pkg/provider/status"
	"go.uber.org/zap"
)

// Exporter publishes a dataset state to an external provider as a draft record
type Exporter struct {
	registry  *core.Registry
	tags      *core.TagManager
	selection core.SelectionHandler
	tokens    core.TokenProvider
	l         *zap.Logger
}

// ExporterOption is a functor to build an exporter with some options
type ExporterOption func(*Exporter)

// ExportSelection injects the callback picking the dataset state to export
func ExportSelection(handler core.SelectionHandler) ExporterOption {
	return func(e *Exporter) {
		if handler != nil {
			e.selection = handler
		}
	}
}

// ExportTokens injects the callback obtaining provider access tokens
func ExportTokens(tokens core.TokenProvider) ExporterOption {
	return func(e *Exporter) {
		e.tokens = tokens
	}
}

// ExportLogger injects a logging facility into export operations
func ExportLogger(l *zap.Logger) ExporterOption {
	return func(e *Exporter) {
		e.l = l
	}
}

// NewExporter builds an exporter over a project's registry and tags.
// Without a selection handler the working state (HEAD) is exported.
func NewExporter(registry *core.Registry, tags *core.TagManager, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		registry:  registry,
		tags:      tags,
		selection: nil,
		l:         zap.NewNop(),
	}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

// Export publishes a dataset to a provider and returns the draft record id.
//
// The exported state is either the working state (HEAD) or a tag snapshot,
// picked through the selection callback. The provider access token comes
// from the token callback; a missing token fails with ErrInvalidAccessToken.
// The exported version label is recorded on the dataset.
func (e *Exporter) Export(ctx context.Context, client core.ProviderClient, datasetName string) (string, error) {
	dataset, err := e.registry.Get(ctx, datasetName)
	if err != nil {
		return "", err
	}

	exported := *dataset
	version := dataset.Version
	if e.selection != nil {
		tags, terr := e.tags.ListTags(ctx, datasetName)
		if terr != nil {
			return "", terr
		}
		if tag := e.selection.SelectTag(tags); tag != nil {
			// a tag snapshot replaces the working state
			exported.Files = tag.Files
			exported.Version = tag.Name
			version = tag.Name
		}
	}

	if e.tokens == nil {
		return "", status.ErrInvalidAccessToken.WrapMessage("no token source configured")
	}
	token, err := e.tokens(client.AccessTokenURL())
	if err != nil {
		return "", status.ErrInvalidAccessToken.Wrap(err)
	}
	if token == "" {
		return "", status.ErrInvalidAccessToken.WrapMessage("empty token for %q", client.AccessTokenURL())
	}

	draftID, err := client.CreateDraft(ctx, exported, token)
	if err != nil {
		return "", err
	}

	dataset.ExportedVersion = version
	if err := e.registry.Save(ctx, dataset); err != nil {
		return "", err
	}
	e.l.Info("exported dataset",
		zap.String("dataset", datasetName),
		zap.String("version", version),
		zap.String("draft", draftID),
	)
	return draftID, nil
}
