package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
	"github.com/ahrav/ragconsole/internal/testutils"
)

// slowGateway delays listings so concurrent loads overlap.
type slowGateway struct {
	*testutils.MockGateway
	delay time.Duration
}

func (g *slowGateway) ListModels(ctx context.Context) (*ports.ModelsResponse, error) {
	time.Sleep(g.delay)
	return g.MockGateway.ListModels(ctx)
}

func TestCatalogLoader_DeduplicatesConcurrentLoads(t *testing.T) {
	gw := &slowGateway{MockGateway: testutils.NewMockGateway(), delay: 50 * time.Millisecond}
	loader := NewCatalogLoader(gw, nil, nil)

	var wg sync.WaitGroup
	results := make([]Catalogs, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cats, err := loader.Load(context.Background())
			assert.NoError(t, err)
			results[i] = cats
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []string{"a", "b", "c"}, r.Models.Models)
		assert.Equal(t, "docs", r.Collections.Current)
	}
	assert.Less(t, gw.ModelCalls, len(results))
}

func TestCatalogLoader_PartialFailure(t *testing.T) {
	gw := testutils.NewMockGateway()
	gw.CollectionsErr = ports.NewGatewayError("list_collections", ports.ErrorKindServer, 500, "", ports.ErrBadStatus)
	loader := NewCatalogLoader(gw, nil, nil)

	cats, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.False(t, cats.Models.Failed)
	assert.Equal(t, "b", cats.Models.DefaultModel)
	assert.True(t, cats.Collections.Failed)
	assert.Equal(t, []string{domain.SentinelCollectionsUnavailable}, cats.Collections.Collections)
}

func TestCatalogLoader_ContextDone(t *testing.T) {
	gw := &slowGateway{MockGateway: testutils.NewMockGateway(), delay: 200 * time.Millisecond}
	loader := NewCatalogLoader(gw, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := loader.Load(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
