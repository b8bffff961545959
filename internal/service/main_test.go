package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"voicenet/internal/blob"
	"voicenet/internal/database"
	"voicenet/internal/models"
	"voicenet/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the full service stack against a throwaway in-memory
// database and a temp-dir blob store.
type testEnv struct {
	db    *gorm.DB
	blobs blob.Store

	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	engagementRepo repository.EngagementRepository
	reportRepo     repository.ReportRepository

	users      *UserService
	posts      *PostService
	comments   *CommentService
	moderation *ModerationService
	profiles   *ProfileService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serializes
	// writers the same way production sqlite is configured.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	blobs, err := blob.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return newTestEnvWith(t, db, blobs)
}

func newTestEnvWith(t *testing.T, db *gorm.DB, blobs blob.Store) *testEnv {
	t.Helper()

	env := &testEnv{
		db:             db,
		blobs:          blobs,
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		engagementRepo: repository.NewEngagementRepository(db),
		reportRepo:     repository.NewReportRepository(db),
	}

	locks := NewKeyedMutex()
	env.users = NewUserService(env.userRepo, blobs)
	env.posts = NewPostService(db, env.postRepo, env.engagementRepo, blobs, locks)
	env.comments = NewCommentService(db, env.commentRepo, env.postRepo, env.engagementRepo, blobs, locks)
	env.moderation = NewModerationService(db, env.postRepo, env.commentRepo, env.engagementRepo, env.reportRepo, blobs, locks)
	env.profiles = NewProfileService(db, env.userRepo, env.engagementRepo, blobs)
	return env
}

// createUser inserts a user directly, skipping the bcrypt cost of the
// signup path.
func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.New().String(),
		Username: username,
		Password: "not-a-real-hash",
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user
}

func (e *testEnv) createPost(t *testing.T, authorID string) *models.Post {
	t.Helper()

	post, err := e.posts.CreatePost(context.Background(), authorID, audioReader())
	require.NoError(t, err)
	return post
}

func (e *testEnv) createComment(t *testing.T, authorID, postID string) *models.Comment {
	t.Helper()

	comment, err := e.comments.CreateComment(context.Background(), authorID, postID, audioReader())
	require.NoError(t, err)
	return comment
}

func audioReader() *bytes.Reader {
	return bytes.NewReader([]byte(strings.Repeat("voice ", 16)))
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
}
