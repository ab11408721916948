package core

import (
	"testing"

	"github.com/dataprov/dataprov/pkg/model"
	"github.com/dataprov/dataprov/pkg/source/mocks"
	"github.com/dataprov/dataprov/pkg/storage"
	"github.com/dataprov/dataprov/pkg/storage/localfs"
	"github.com/spf13/afero"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestMeta builds an in-memory metadata store
func newTestMeta() storage.Store {
	return localfs.New(afero.NewMemMapFs())
}

// newHeadRepo builds an empty mock remote with the enclosing project at head
func newHeadRepo(head string) *mocks.Repo {
	return mocks.NewRepo(head)
}

func strPtr(s string) *string {
	return &s
}

// acceptAll confirms every prompt and always picks the working state
type acceptAll struct{}

func (acceptAll) SelectTag([]model.TagDescriptor) *model.TagDescriptor { return nil }
func (acceptAll) Confirm(string) bool                                  { return true }
