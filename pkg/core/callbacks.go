package core

import "github.com/dataprov/dataprov/pkg/model"

// SelectionHandler answers the engine's questions to the user.
//
// Prompting is injected so the engine stays non-interactive: CLI callers
// plug a terminal prompt, services plug policy decisions.
type SelectionHandler interface {
	// SelectTag picks the tag snapshot an operation should act on,
	// or nil for the current working state (HEAD)
	SelectTag(tags []model.TagDescriptor) *model.TagDescriptor

	// Confirm acknowledges a destructive or lossy operation
	Confirm(prompt string) bool
}

// TokenProvider obtains an access token for a provider, given the URL
// where tokens are created
type TokenProvider func(accessTokenURL string) (string, error)

// denyAll is the default handler: HEAD state, no confirmation granted
type denyAll struct{}

func (denyAll) SelectTag([]model.TagDescriptor) *model.TagDescriptor { return nil }
func (denyAll) Confirm(string) bool                                  { return false }
