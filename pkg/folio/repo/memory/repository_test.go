package memory

import (
	"testing"

	"github.com/tendant/folio/pkg/folio"
	"github.com/tendant/folio/pkg/folio/repo/repotest"
)

func TestRepositoryConformance(t *testing.T) {
	repotest.RunConformanceSuite(t, func(t *testing.T) folio.Repository {
		return New()
	})
}
