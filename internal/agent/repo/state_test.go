package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	errx "github.com/autostream-sales-agent/server/internal/core/error"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func sampleState(id string) model.State {
	s := model.NewState(id)
	s.History = []*schema.Message{schema.UserMessage("I want to sign up"), schema.AssistantMessage("Can I get your name first?", nil)}
	s.Intent = model.IntentHighIntent
	s.Lead = model.Lead{Name: "John Doe"}
	s.PendingField = model.FieldEmail
	return s
}

func TestRedisStateRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniredis(t)
	repo := NewRedisStateRepository(rdb, time.Hour)

	got, err := repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	want := sampleState("u1")
	require.NoError(t, repo.SaveState(ctx, want))
	assert.Equal(t, time.Hour, mr.TTL("session:u1:state"))

	got, err = repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Lead, got.Lead)
	assert.Equal(t, want.PendingField, got.PendingField)
	assert.Equal(t, want.Intent, got.Intent)
	require.Len(t, got.History, 2)
	assert.Equal(t, schema.Assistant, got.History[1].Role)

	require.NoError(t, repo.DeleteState(ctx, "u1"))
	got, err = repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStateRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniredis(t)
	repo := NewRedisStateRepository(rdb, time.Minute)

	require.NoError(t, repo.SaveState(ctx, sampleState("u1")))
	mr.FastForward(2 * time.Minute)

	got, err := repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStateRepositoryNoTTL(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniredis(t)
	repo := NewRedisStateRepository(rdb, 0)

	require.NoError(t, repo.SaveState(ctx, sampleState("u1")))
	assert.Zero(t, mr.TTL("session:u1:state"))
}

func TestRedisStateRepositoryMalformed(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniredis(t)
	repo := NewRedisStateRepository(rdb, 0)

	require.NoError(t, mr.Set("session:u1:state", "{not json"))
	got, err := repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStateRepositoryUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniredis(t)
	repo := NewRedisStateRepository(rdb, 0)
	mr.Close()

	_, err := repo.LoadState(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, 502, errx.StatusOf(err))
}

func TestMemoryStateRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewMemoryStateRepository(100, 0)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	got, err := repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	want := sampleState("u1")
	require.NoError(t, repo.SaveState(ctx, want))

	got, err = repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Lead, got.Lead)

	// loaded states are private copies
	got.History[0].Content = "changed"
	again, err := repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "I want to sign up", again.History[0].Content)

	require.NoError(t, repo.DeleteState(ctx, "u1"))
	got, err = repo.LoadState(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStateRepositoryKeepsSessionsApart(t *testing.T) {
	ctx := context.Background()
	repo, err := NewMemoryStateRepository(0, time.Hour)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	a := sampleState("a")
	b := model.NewState("b")
	require.NoError(t, repo.SaveState(ctx, a))
	require.NoError(t, repo.SaveState(ctx, b))

	gotB, err := repo.LoadState(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.Lead{}, gotB.Lead)
	assert.Equal(t, model.FieldNone, gotB.PendingField)
}
