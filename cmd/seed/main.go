// Command seed populates a development database with demo data.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math/rand"

	"voicenet/internal/blob"
	"voicenet/internal/config"
	"voicenet/internal/database"
	"voicenet/internal/repository"
	"voicenet/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	blobs, err := blob.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatalf("Blob store init failed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	locks := service.NewKeyedMutex()
	users := service.NewUserService(userRepo, blobs)
	posts := service.NewPostService(db, postRepo, engagementRepo, blobs, locks)
	comments := service.NewCommentService(db, commentRepo, postRepo, engagementRepo, blobs, locks)

	ctx := context.Background()

	var userIDs []string
	for i := 0; i < 10; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(10, 99))
		user, err := users.Register(ctx, username, "SeededPass12!")
		if err != nil {
			log.Printf("skipping user %s: %v", username, err)
			continue
		}
		userIDs = append(userIDs, user.ID)
	}
	if len(userIDs) == 0 {
		log.Fatal("no users could be seeded")
	}

	var postIDs []string
	for i := 0; i < 25; i++ {
		author := userIDs[rand.Intn(len(userIDs))]
		post, err := posts.CreatePost(ctx, author, fakeAudio())
		if err != nil {
			log.Fatalf("seeding post failed: %v", err)
		}
		postIDs = append(postIDs, post.ID)
	}

	for _, postID := range postIDs {
		// A few listens and a couple of replies per post.
		for i := 0; i < rand.Intn(len(userIDs)); i++ {
			if _, err := posts.Listen(ctx, userIDs[rand.Intn(len(userIDs))], postID); err != nil {
				log.Fatalf("seeding listen failed: %v", err)
			}
		}
		for i := 0; i < rand.Intn(3); i++ {
			author := userIDs[rand.Intn(len(userIDs))]
			if _, err := comments.CreateComment(ctx, author, postID, fakeAudio()); err != nil {
				log.Fatalf("seeding comment failed: %v", err)
			}
		}
	}

	log.Printf("Seeded %d users and %d posts", len(userIDs), len(postIDs))
}

// fakeAudio produces a placeholder payload; browsers will not play it,
// which is fine for API-level development.
func fakeAudio() *bytes.Reader {
	return bytes.NewReader([]byte(gofakeit.Sentence(20)))
}
