package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"voicenet/internal/blob"
	"voicenet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedUsers creates n distinct users.
func seedUsers(t *testing.T, env *testEnv, n int, prefix string) []*models.User {
	t.Helper()

	users := make([]*models.User, n)
	for i := range users {
		users[i] = env.createUser(t, fmt.Sprintf("%s%d", prefix, i))
	}
	return users
}

// listenAll plays the post once per user.
func listenAll(t *testing.T, env *testEnv, users []*models.User, postID string) {
	t.Helper()

	for _, u := range users {
		_, err := env.posts.Listen(context.Background(), u.ID, postID)
		require.NoError(t, err)
	}
}

func TestModerationService_VoteBelowQuorumKeepsPost(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	post := env.createPost(t, author.ID)

	listeners := seedUsers(t, env, 10, "listener")
	listenAll(t, env, listeners, post.ID)

	// 4 votes out of 10 listens: ratio is high enough but the quorum
	// is not met.
	for _, voter := range listeners[:4] {
		result, err := env.moderation.CastDeleteVote(ctx, voter.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, result.Deleted)
		assert.True(t, result.Post.UserVotedDelete)
		assert.True(t, result.Post.UserListened, "voter had listened before voting")
	}

	got, err := env.posts.GetPost(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.DeleteVotes)
}

func TestModerationService_UnheardPostIsNeverDeleted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	post := env.createPost(t, author.ID)

	voters := seedUsers(t, env, 10, "voter")
	for _, voter := range voters {
		result, err := env.moderation.CastDeleteVote(ctx, voter.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, result.Deleted, "a post with zero listens must survive any number of votes")
	}

	got, err := env.posts.GetPost(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.DeleteVotes)
}

func TestModerationService_RatioGateHoldsUntilExceeded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	post := env.createPost(t, author.ID)

	listeners := seedUsers(t, env, 20, "fan")
	listenAll(t, env, listeners, post.ID)

	// 6/20 = 0.30 is not strictly greater than the ratio gate.
	for _, voter := range listeners[:6] {
		result, err := env.moderation.CastDeleteVote(ctx, voter.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, result.Deleted)
	}

	// The 7th vote tips 7/20 = 0.35 over the gate.
	result, err := env.moderation.CastDeleteVote(ctx, listeners[6].ID, post.ID)
	require.NoError(t, err)
	assert.True(t, result.Deleted)

	_, err = env.posts.GetPost(ctx, post.ID, author.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestModerationService_DuplicateVoteIsSilentNoop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	voter := env.createUser(t, "voter")
	post := env.createPost(t, author.ID)

	for i := 0; i < 5; i++ {
		result, err := env.moderation.CastDeleteVote(ctx, voter.ID, post.ID)
		require.NoError(t, err)
		require.False(t, result.Deleted)
		assert.Equal(t, 1, result.Post.DeleteVotes)
		assert.True(t, result.Post.UserVotedDelete)
		assert.False(t, result.Post.UserListened, "voter never listened")
	}
}

func TestModerationService_CascadeRemovesCommentsAndBlobs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blobs, err := blob.NewLocalStore(dir, "/uploads")
	require.NoError(t, err)
	env := newTestEnvWith(t, newTestDB(t), blobs)

	ctx := context.Background()
	author := env.createUser(t, "author")
	post := env.createPost(t, author.ID)
	commenters := seedUsers(t, env, 3, "commenter")
	for _, u := range commenters {
		env.createComment(t, u.ID, post.ID)
	}

	listeners := seedUsers(t, env, 5, "listener")
	listenAll(t, env, listeners, post.ID)
	var deleted bool
	for _, voter := range listeners {
		result, err := env.moderation.CastDeleteVote(ctx, voter.ID, post.ID)
		require.NoError(t, err)
		deleted = result.Deleted
	}
	require.True(t, deleted, "5/5 votes must delete the post")

	var commentCount int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&commentCount).Error)
	assert.Zero(t, commentCount, "comments must be removed in the same cascade")

	for _, sub := range []string{"posts", "comments"} {
		entries, err := os.ReadDir(filepath.Join(dir, sub))
		if err != nil {
			require.True(t, os.IsNotExist(err))
			continue
		}
		assert.Empty(t, entries, "no %s audio blobs should survive the cascade", sub)
	}
}

func TestModerationService_ConcurrentVotesCascadeOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	post := env.createPost(t, author.ID)

	voters := seedUsers(t, env, 10, "voter")
	listenAll(t, env, voters, post.ID)

	var (
		mu        sync.Mutex
		deletions int
		wg        sync.WaitGroup
	)
	for _, voter := range voters {
		wg.Add(1)
		go func(voterID string) {
			defer wg.Done()
			result, err := env.moderation.CastDeleteVote(ctx, voterID, post.ID)
			if err != nil {
				// Votes that arrive after the cascade see the post gone.
				var appErr *models.AppError
				if assert.ErrorAs(t, err, &appErr) {
					assert.Equal(t, models.CodeNotFound, appErr.Code)
				}
				return
			}
			if result.Deleted {
				mu.Lock()
				deletions++
				mu.Unlock()
			}
		}(voter.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, deletions, "exactly one vote may observe the cascade")
	_, err := env.posts.GetPost(ctx, post.ID, author.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestModerationService_CommentAfterCascadeFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	post := env.createPost(t, author.ID)

	voters := seedUsers(t, env, 5, "voter")
	listenAll(t, env, voters, post.ID)
	for _, voter := range voters {
		_, err := env.moderation.CastDeleteVote(ctx, voter.ID, post.ID)
		require.NoError(t, err)
	}

	late := env.createUser(t, "latecomer")
	_, err := env.comments.CreateComment(ctx, late.ID, post.ID, audioReader())
	assertAppErrorCode(t, err, models.CodeNotFound)
}

// failingDeleteStore wraps a Store so Delete always errors.
type failingDeleteStore struct {
	blob.Store
}

func (f *failingDeleteStore) Delete(string) error {
	return errors.New("storage offline")
}

func TestModerationService_BlobFailureDoesNotAbortCascade(t *testing.T) {
	t.Parallel()

	inner, err := blob.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	env := newTestEnvWith(t, newTestDB(t), &failingDeleteStore{Store: inner})

	ctx := context.Background()
	author := env.createUser(t, "author")
	post := env.createPost(t, author.ID)

	voters := seedUsers(t, env, 5, "voter")
	listenAll(t, env, voters, post.ID)

	var deleted bool
	for _, voter := range voters {
		result, err := env.moderation.CastDeleteVote(ctx, voter.ID, post.ID)
		require.NoError(t, err, "blob cleanup failures must not surface to the voter")
		deleted = result.Deleted
	}
	require.True(t, deleted)

	_, err = env.posts.GetPost(ctx, post.ID, author.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestModerationService_ReportPost(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "author")
	reporter := env.createUser(t, "reporter")
	post := env.createPost(t, author.ID)

	require.NoError(t, env.moderation.ReportPost(ctx, reporter.ID, post.ID, "shouting match"))

	reports, err := env.reportRepo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, reporter.ID, reports[0].ReporterID)
	assert.Equal(t, "shouting match", reports[0].Reason)

	err = env.moderation.ReportPost(ctx, reporter.ID, post.ID, "   ")
	assertAppErrorCode(t, err, models.CodeValidation)

	err = env.moderation.ReportPost(ctx, reporter.ID, "0b6a4735-14c4-4bc2-8a14-3d5a69373615", "gone")
	assertAppErrorCode(t, err, models.CodeNotFound)
}
