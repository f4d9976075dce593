package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-authgate/appgrant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setScore overwrites a relation's score as of the current test clock.
func setScore(t *testing.T, env *testEnv, ua *models.UserApp, score float64) {
	t.Helper()
	fresh, err := env.store.GetUserApp(context.Background(), ua.UserID, ua.AppID)
	require.NoError(t, err)
	ok, err := env.store.UpdateUserAppScore(
		context.Background(), fresh.ID, fresh.ScoreUpdateTime, score, env.clock.Now())
	require.NoError(t, err)
	require.True(t, ok)
}

func bindApps(t *testing.T, env *testEnv, userID string, n int) []*models.UserApp {
	t.Helper()
	owner := makeTestUser(t, env.store)
	uas := make([]*models.UserApp, 0, n)
	for i := 0; i < n; i++ {
		app := makeTestApp(t, env, owner.ID, fmt.Sprintf("ranked-%d", i))
		res, err := env.binding.DoBind(context.Background(), userID, app.ID)
		require.NoError(t, err)
		uas = append(uas, res.UserApp)
	}
	return uas
}

func TestFrequencyService_TopN(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := makeTestUser(t, env.store)
	uas := bindApps(t, env, user.ID, 5)

	// Rebind #2 later so it wins the tie with #3 on recency
	env.clock.Advance(time.Minute)
	_, err := env.binding.DoBind(ctx, user.ID, uas[2].AppID)
	require.NoError(t, err)

	setScore(t, env, uas[0], 1)
	setScore(t, env, uas[1], 5)
	setScore(t, env, uas[2], 3)
	setScore(t, env, uas[3], 3)
	setScore(t, env, uas[4], 0.5)

	top, err := env.frequency.TopN(ctx, user.ID, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, uas[1].ID, top[0].UserApp.ID)
	assert.Equal(t, uas[2].ID, top[1].UserApp.ID)
	assert.Equal(t, uas[3].ID, top[2].UserApp.ID)
	assert.InDelta(t, 5.0, top[0].Score, 1e-9)
	require.NotNil(t, top[0].UserApp.App)

	all, err := env.frequency.TopN(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := env.frequency.TopN(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFrequencyService_TopNTieBreaksByCreationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := makeTestUser(t, env.store)
	uas := bindApps(t, env, user.ID, 3)

	top, err := env.frequency.TopN(ctx, user.ID, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	for i := range uas {
		assert.Equal(t, uas[i].ID, top[i].UserApp.ID)
	}
}

func TestFrequencyService_TopNSkipsUnbound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := makeTestUser(t, env.store)
	uas := bindApps(t, env, user.ID, 2)

	setScore(t, env, uas[0], 100)
	require.NoError(t, env.binding.Unbind(ctx, user.ID, uas[0].AppID))

	top, err := env.frequency.TopN(ctx, user.ID, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, uas[1].ID, top[0].UserApp.ID)
}

func TestFrequencyService_DecayRecencyBeatsCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := makeTestUser(t, env.store)
	uas := bindApps(t, env, user.ID, 2)

	// Heavy use long ago
	for i := 0; i < 4; i++ {
		require.NoError(t, env.frequency.Bump(ctx, uas[0]))
	}
	env.clock.Advance(3 * env.cfg.FrequencyHalfLife)
	// Light use now
	require.NoError(t, env.frequency.Bump(ctx, uas[1]))

	top, err := env.frequency.TopN(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, uas[1].ID, top[0].UserApp.ID)
	assert.InDelta(t, 0.5, top[1].Score, 1e-9)
}

func TestFrequencyService_BumpRetriesOnConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := makeTestUser(t, env.store)
	ua := bindApps(t, env, user.ID, 1)[0]

	stale := *ua
	env.clock.Advance(time.Second)
	require.NoError(t, env.frequency.Bump(ctx, ua))

	// stale still carries the old ScoreUpdateTime; the first write must miss
	require.NoError(t, env.frequency.Bump(ctx, &stale))

	stored, err := env.store.GetUserApp(ctx, user.ID, ua.AppID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, stored.FrequentScore, 1e-9)
	assert.InDelta(t, 2.0, stale.FrequentScore, 1e-9)
}

func TestFrequencyService_RefreshAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := makeTestUser(t, env.store)
	uas := bindApps(t, env, user.ID, 5)

	setScore(t, env, uas[0], 4)
	setScore(t, env, uas[1], 0.015)

	env.clock.Advance(env.cfg.FrequencyHalfLife)

	// Batch size 2 forces several pages over five rows
	updated, err := env.frequency.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, updated)

	first, err := env.store.GetUserApp(ctx, user.ID, uas[0].AppID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, first.FrequentScore, 1e-9)
	assert.True(t, first.ScoreUpdateTime.Equal(env.clock.Now()))

	// Below the floor collapses to zero
	second, err := env.store.GetUserApp(ctx, user.ID, uas[1].AppID)
	require.NoError(t, err)
	assert.Zero(t, second.FrequentScore)

	// Same instant again changes nothing
	updated, err = env.frequency.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, updated)

	again, err := env.store.GetUserApp(ctx, user.ID, uas[0].AppID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, again.FrequentScore, 1e-9)
}

func TestFrequencyService_RefreshAllEmpty(t *testing.T) {
	env := newTestEnv(t)
	updated, err := env.frequency.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestFrequencyService_RefreshAllStorageFailure(t *testing.T) {
	recorder := newQueryErrorRecorder()
	env := newTestEnv(t, withMetrics(recorder))
	ctx := context.Background()
	require.NoError(t, env.store.Close(ctx))

	_, err := env.frequency.RefreshAll(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, recorder.count("list_user_apps"))
	assert.Zero(t, recorder.count("update_user_app_score"))
}
