package request

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fetcharr/fetcharr/internal/catalog"
	"github.com/fetcharr/fetcharr/internal/notify"
	"github.com/fetcharr/fetcharr/internal/provider"
	"github.com/fetcharr/fetcharr/internal/provider/mocks"
)

type fakeCatalog struct {
	titles map[int64]*catalog.Title
	err    error
}

func (f *fakeCatalog) GetTitle(_ context.Context, id int64) (*catalog.Title, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.titles[id]
	if !ok {
		return nil, catalog.ErrTitleNotFound
	}
	return t, nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *captureNotifier) Emit(_ context.Context, e notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureNotifier) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Name
	}
	return out
}

type engineFixture struct {
	engine  *Engine
	store   *Store
	movies  *mocks.MockService
	series  *mocks.MockService
	catalog *fakeCatalog
	events  *captureNotifier
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &engineFixture{
		store:   NewStore(setupTestDB(t)),
		movies:  mocks.NewMockService(ctrl),
		series:  mocks.NewMockService(ctrl),
		catalog: &fakeCatalog{titles: map[int64]*catalog.Title{}},
		events:  &captureNotifier{},
	}
	f.movies.EXPECT().Name().Return("radarr").AnyTimes()
	f.series.EXPECT().Name().Return("sonarr").AnyTimes()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.engine = NewEngine(f.store,
		Providers{Movies: f.movies, Series: f.series},
		f.catalog, f.events,
		Config{DetailAttempts: 1, DetailAttemptsCreated: 2, DetailDelay: time.Millisecond},
		log)
	return f
}

func TestSubmitWithoutConfiguredBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	series := mocks.NewMockService(ctrl)
	series.EXPECT().Name().Return("sonarr").AnyTimes()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewStore(setupTestDB(t))

	// Sonarr-only deployment: movie submissions have nowhere to go.
	eng := NewEngine(store, Providers{Series: series},
		&fakeCatalog{titles: map[int64]*catalog.Title{}}, nil, Config{}, log)

	res, err := eng.Submit(context.Background(), SubmitParams{
		Kind: KindMovie, CatalogID: 603, RequestedBy: "alice",
	})
	require.ErrorIs(t, err, ErrNoBackend)
	assert.Nil(t, res)

	// And the mirror image for episodes.
	movies := mocks.NewMockService(ctrl)
	movies.EXPECT().Name().Return("radarr").AnyTimes()
	eng = NewEngine(store, Providers{Movies: movies},
		&fakeCatalog{titles: map[int64]*catalog.Title{}}, nil, Config{}, log)

	_, err = eng.Submit(context.Background(), SubmitParams{
		Kind: KindEpisodes, CatalogID: 42, Season: 1, Episodes: []int{1}, RequestedBy: "alice",
	})
	require.ErrorIs(t, err, ErrNoBackend)

	reqs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, reqs, "nothing is persisted when the backend is missing")
}

func TestSubmitValidation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params SubmitParams
	}{
		{"zero catalog id", SubmitParams{Kind: KindMovie}},
		{"movie with episodes", SubmitParams{Kind: KindMovie, CatalogID: 1, Episodes: []int{1}}},
		{"episodes without episodes", SubmitParams{Kind: KindEpisodes, CatalogID: 1, Season: 1}},
		{"negative season", SubmitParams{Kind: KindEpisodes, CatalogID: 1, Season: -1, Episodes: []int{1}}},
		{"zero episode number", SubmitParams{Kind: KindEpisodes, CatalogID: 1, Season: 1, Episodes: []int{0}}},
		{"unknown kind", SubmitParams{Kind: "album", CatalogID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Submit(ctx, tt.params)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	f := newEngineFixture(t)

	res, err := f.engine.Submit(context.Background(), SubmitParams{
		Kind:        KindEpisodes,
		CatalogID:   42,
		Season:      2,
		Episodes:    []int{1, 2},
		RequestedBy: "alice",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Request)
	assert.Empty(t, res.Conflicts)

	got, err := f.store.Get(res.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "sonarr", got.Items[0].Provider)
	assert.Equal(t, []string{notify.EventRequestPending}, f.events.names())
}

func TestSubmitDuplicateMovie(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.engine.Submit(ctx, SubmitParams{Kind: KindMovie, CatalogID: 7, RequestedBy: "alice"})
	require.NoError(t, err)
	require.NotNil(t, first.Request)

	second, err := f.engine.Submit(ctx, SubmitParams{Kind: KindMovie, CatalogID: 7, RequestedBy: "bob"})
	require.NoError(t, err)
	assert.Nil(t, second.Request, "nothing left to request")
	assert.Equal(t, []EpisodeKey{{}}, second.Conflicts)
}

func TestSubmitPartialDuplicate(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, SubmitParams{
		Kind: KindEpisodes, CatalogID: 42, Season: 2, Episodes: []int{1}, RequestedBy: "alice",
	})
	require.NoError(t, err)

	res, err := f.engine.Submit(ctx, SubmitParams{
		Kind: KindEpisodes, CatalogID: 42, Season: 2, Episodes: []int{1, 2}, RequestedBy: "bob",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Request, "uncontested episode still gets requested")
	assert.Equal(t, []EpisodeKey{{Season: 2, Episode: 1}}, res.Conflicts)
	require.Len(t, res.Request.Items, 1)
	assert.Equal(t, EpisodeKey{Season: 2, Episode: 2}, res.Request.Items[0].Key())
}

func TestSubmitConcurrentSameTitle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	results := make([]*SubmitResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.engine.Submit(ctx, SubmitParams{
				Kind: KindMovie, CatalogID: 7, RequestedBy: "racer",
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if results[i].Request != nil {
			created++
		} else {
			assert.Equal(t, []EpisodeKey{{}}, results[i].Conflicts)
		}
	}
	assert.Equal(t, 1, created, "exactly one submission wins the key")
}

func TestSubmitElevatedFreshSeries(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.catalog.titles[42] = &catalog.Title{ID: 42, Name: "Severance", SecondaryID: 371980}

	match := provider.Match{Title: "Severance", ExternalID: 371980}
	added := &provider.Item{ID: 55, Title: "Severance", ExternalID: 371980}
	detail := &provider.Item{ID: 55, ExternalID: 371980, Units: []provider.Unit{
		{ID: 9001, Season: 2, Episode: 1},
		{ID: 9002, Season: 2, Episode: 2},
		{ID: 9003, Season: 2, Episode: 3},
	}}

	f.series.EXPECT().ListTracked(ctx).Return(nil, nil)
	f.series.EXPECT().LookupByExternalID(ctx, int64(371980)).Return([]provider.Match{match}, nil)
	f.series.EXPECT().Add(ctx, match, false, int64(1)).Return(added, nil)
	f.series.EXPECT().GetDetail(ctx, int64(55)).Return(detail, nil)
	f.series.EXPECT().SetUnitsMonitored(ctx, []int64{9001, 9002}, true).Return(nil)
	f.series.EXPECT().TriggerSearch(ctx, []int64{9001, 9002}).Return(nil)

	res, err := f.engine.Submit(ctx, SubmitParams{
		Kind: KindEpisodes, CatalogID: 42, Season: 2, Episodes: []int{1, 2},
		RequestedBy: "admin", Elevated: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Request)

	got, err := f.store.Get(res.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, got.Status)
	for _, it := range got.Items {
		assert.Equal(t, ItemSubmitted, it.Status)
		require.NotNil(t, it.ProviderItemID)
		require.NotNil(t, it.ProviderParentID)
		assert.Equal(t, int64(55), *it.ProviderParentID)
	}
	assert.Equal(t, int64(9001), *got.Items[0].ProviderItemID)
	assert.Equal(t, int64(9002), *got.Items[1].ProviderItemID)
	assert.Equal(t, []string{notify.EventRequestSubmitted}, f.events.names())
}

func TestSubmitElevatedMovieAlreadyExists(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.catalog.titles[603] = &catalog.Title{ID: 603, Name: "The Matrix"}

	tracked := provider.Item{ID: 12, Title: "The Matrix", ExternalID: 603, HasFile: true}
	f.movies.EXPECT().ListTracked(ctx).Return([]provider.Item{tracked}, nil)
	f.movies.EXPECT().GetDetail(ctx, int64(12)).Return(&provider.Item{
		ID: 12, ExternalID: 603, HasFile: true,
		Units: []provider.Unit{{ID: 12, HasFile: true}},
	}, nil)

	res, err := f.engine.Submit(ctx, SubmitParams{
		Kind: KindMovie, CatalogID: 603, RequestedBy: "admin", Elevated: true,
	})
	require.NoError(t, err)

	got, err := f.store.Get(res.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, got.Status)
	assert.Equal(t, ItemAvailable, got.Items[0].Status)
	assert.Equal(t, []string{notify.EventRequestAlreadyExists}, f.events.names())
}

func TestApproveRecoversFromAddRejection(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.catalog.titles[603] = &catalog.Title{ID: 603, Name: "The Matrix"}

	match := provider.Match{Title: "The Matrix", ExternalID: 603}
	existing := provider.Item{ID: 12, ExternalID: 603}
	rejection := &provider.AddError{Backend: "radarr", Message: "This movie has already been added"}

	// First scan misses the record, the add gets rejected as a duplicate,
	// and the rescan recovers the existing record.
	f.movies.EXPECT().ListTracked(ctx).Return(nil, nil)
	f.movies.EXPECT().LookupByExternalID(ctx, int64(603)).Return([]provider.Match{match}, nil)
	f.movies.EXPECT().Add(ctx, match, true, int64(1)).Return(nil, rejection)
	f.movies.EXPECT().ListTracked(ctx).Return([]provider.Item{existing}, nil)
	f.movies.EXPECT().GetDetail(ctx, int64(12)).Return(&provider.Item{
		ID: 12, ExternalID: 603,
		Units: []provider.Unit{{ID: 12, HasFile: false}},
	}, nil)
	f.movies.EXPECT().SetUnitsMonitored(ctx, []int64{12}, true).Return(nil)
	f.movies.EXPECT().TriggerSearch(ctx, []int64{12}).Return(nil)

	res, err := f.engine.Submit(ctx, SubmitParams{Kind: KindMovie, CatalogID: 603, RequestedBy: "alice"})
	require.NoError(t, err)

	require.NoError(t, f.engine.Approve(ctx, res.Request.ID))

	got, err := f.store.Get(res.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, got.Status)
}

func TestApproveNonPending(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, SubmitParams{Kind: KindMovie, CatalogID: 7, RequestedBy: "alice"})
	require.NoError(t, err)
	require.NoError(t, f.store.Transition(res.Request.ID, StatusDenied, nil))

	err = f.engine.Approve(ctx, res.Request.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestApproveCatalogFailureMarksFailed(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.catalog.err = errors.New("catalog unreachable")

	res, err := f.engine.Submit(ctx, SubmitParams{Kind: KindMovie, CatalogID: 7, RequestedBy: "alice"})
	require.NoError(t, err)

	err = f.engine.Approve(ctx, res.Request.ID)
	require.Error(t, err)

	got, gerr := f.store.Get(res.Request.ID)
	require.NoError(t, gerr)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.StatusReason)
	assert.Contains(t, *got.StatusReason, "catalog unreachable")
	assert.Equal(t, ItemFailed, got.Items[0].Status)
	assert.Contains(t, f.events.names(), notify.EventRequestFailed)
}

func TestApproveBackendNotPopulatedLandsPending(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.catalog.titles[42] = &catalog.Title{ID: 42, Name: "Severance", SecondaryID: 371980}

	match := provider.Match{Title: "Severance", ExternalID: 371980}
	added := &provider.Item{ID: 55, ExternalID: 371980}
	// The backend only knows episode 1 so far.
	partial := &provider.Item{ID: 55, ExternalID: 371980, Units: []provider.Unit{
		{ID: 9001, Season: 2, Episode: 1},
	}}

	f.series.EXPECT().ListTracked(ctx).Return(nil, nil)
	f.series.EXPECT().LookupByExternalID(ctx, int64(371980)).Return([]provider.Match{match}, nil)
	f.series.EXPECT().Add(ctx, match, false, int64(1)).Return(added, nil)
	f.series.EXPECT().GetDetail(ctx, int64(55)).Return(partial, nil).Times(2)

	res, err := f.engine.Submit(ctx, SubmitParams{
		Kind: KindEpisodes, CatalogID: 42, Season: 2, Episodes: []int{1, 2},
		RequestedBy: "admin", Elevated: true,
	})
	require.NoError(t, err, "missing units are a soft landing, not a failure")

	got, gerr := f.store.Get(res.Request.ID)
	require.NoError(t, gerr)
	assert.Equal(t, StatusPending, got.Status)
	require.NotNil(t, got.StatusReason)
	assert.Contains(t, *got.StatusReason, "not yet available")

	// The episode the backend did know got resolved for later retries.
	require.NotNil(t, got.Items[0].ProviderItemID)
	assert.Equal(t, int64(9001), *got.Items[0].ProviderItemID)
	assert.Nil(t, got.Items[1].ProviderItemID)
	assert.Equal(t, []string{notify.EventRequestPending}, f.events.names())
}

func TestDeny(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, SubmitParams{Kind: KindMovie, CatalogID: 7, RequestedBy: "alice"})
	require.NoError(t, err)

	require.NoError(t, f.engine.Deny(ctx, res.Request.ID))

	got, gerr := f.store.Get(res.Request.ID)
	require.NoError(t, gerr)
	assert.Equal(t, StatusDenied, got.Status)
	assert.Contains(t, f.events.names(), notify.EventRequestDenied)

	err = f.engine.Deny(ctx, res.Request.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestDeleteMarksRemoved(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, SubmitParams{Kind: KindMovie, CatalogID: 7, RequestedBy: "alice"})
	require.NoError(t, err)

	// No resolved provider ids: cleanup has nothing to do.
	require.NoError(t, f.engine.Delete(ctx, res.Request.ID))

	got, gerr := f.store.Get(res.Request.ID)
	require.NoError(t, gerr)
	assert.Equal(t, StatusRemoved, got.Status)
	assert.Equal(t, ItemRemoved, got.Items[0].Status)
	assert.Contains(t, f.events.names(), notify.EventRequestRemoved)
}

func TestCleanupOrdering(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	ep1, ep2 := 9001, 9002
	parent := int64(55)
	id1, id2 := int64(ep1), int64(ep2)
	season := 2
	e1, e2 := 1, 2
	req := &Request{
		ID:   1,
		Kind: KindEpisodes,
		Items: []*Item{
			{Provider: "sonarr", ProviderItemID: &id1, ProviderParentID: &parent, Season: &season, Episode: &e1},
			{Provider: "sonarr", ProviderItemID: &id2, ProviderParentID: &parent, Season: &season, Episode: &e2},
		},
	}

	queue := []provider.QueueRecord{
		{ID: 300, UnitIDs: []int64{9001}},
		{ID: 301, UnitIDs: []int64{7777}}, // someone else's download, untouched
	}

	gomock.InOrder(
		f.series.EXPECT().SetUnitsMonitored(ctx, []int64{9001, 9002}, false).Return(nil),
		f.series.EXPECT().ListQueue(ctx).Return(queue, nil),
		f.series.EXPECT().DeleteQueueRecord(ctx, int64(300), true).Return(nil),
		f.series.EXPECT().DeleteItem(ctx, parent, provider.DeleteOptions{}).Return(nil),
	)

	f.engine.cleanup(ctx, req)
}

func TestCleanupSwallowsBackendErrors(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	id := int64(12)
	req := &Request{
		ID:    1,
		Kind:  KindMovie,
		Items: []*Item{{Provider: "radarr", ProviderItemID: &id}},
	}

	f.movies.EXPECT().ListQueue(ctx).Return(nil, errors.New("backend down"))
	f.movies.EXPECT().DeleteItem(ctx, id, provider.DeleteOptions{}).Return(errors.New("backend down"))

	// Must not panic or propagate anything.
	f.engine.cleanup(ctx, req)
}
