package service

import (
	"context"
	"testing"

	"voicenet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_AggregatesAcrossPosts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	postA := env.createPost(t, author.ID)
	postB := env.createPost(t, author.ID)

	// Three fans listen to both posts, four more only to the second:
	// 3 + 7 = 10 listens from 7 distinct listeners.
	fans := seedUsers(t, env, 7, "fan")
	for _, fan := range fans[:3] {
		_, err := env.posts.Listen(ctx, fan.ID, postA.ID)
		require.NoError(t, err)
	}
	for _, fan := range fans {
		_, err := env.posts.Listen(ctx, fan.ID, postB.ID)
		require.NoError(t, err)
	}

	// Comments received on the author's posts do not count toward
	// TotalComments; only comments the author wrote do.
	env.createComment(t, fans[0].ID, postA.ID)
	env.createComment(t, fans[1].ID, postB.ID)

	// One comment authored elsewhere, collecting two thumbs-down.
	otherPost := env.createPost(t, fans[0].ID)
	authorComment := env.createComment(t, author.ID, otherPost.ID)
	for _, critic := range fans[:2] {
		_, err := env.comments.ToggleThumbsDown(ctx, critic.ID, authorComment.ID)
		require.NoError(t, err)
	}

	profile, err := env.profiles.GetProfile(ctx, "author")
	require.NoError(t, err)

	assert.Equal(t, author.ID, profile.User.ID)
	assert.Equal(t, int64(2), profile.Stats.PostCount)
	assert.Equal(t, int64(10), profile.Stats.TotalListens)
	assert.Equal(t, int64(1), profile.Stats.TotalComments, "counts comments authored, not received")
	assert.Equal(t, int64(2), profile.Stats.TotalThumbsDown)
	assert.Equal(t, int64(7), profile.Stats.Listeners, "listeners counts people, not plays")
}

func TestProfileService_StatsDropWithDeletedPosts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	post := env.createPost(t, author.ID)

	voters := seedUsers(t, env, 5, "voter")
	listenAll(t, env, voters, post.ID)

	before, err := env.profiles.GetProfile(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, int64(5), before.Stats.TotalListens)
	assert.Equal(t, int64(5), before.Stats.Listeners)

	for _, voter := range voters {
		_, err := env.moderation.CastDeleteVote(ctx, voter.ID, post.ID)
		require.NoError(t, err)
	}

	after, err := env.profiles.GetProfile(ctx, "author")
	require.NoError(t, err)
	assert.Zero(t, after.Stats.PostCount)
	assert.Zero(t, after.Stats.TotalListens)
	assert.Zero(t, after.Stats.Listeners, "ledger rows for deleted posts must not count")
}

func TestProfileService_UnknownUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.profiles.GetProfile(context.Background(), "nobody")
	assertAppErrorCode(t, err, models.CodeNotFound)
}
