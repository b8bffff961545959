package server

import (
	"voicenet/internal/models"
	"voicenet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts. The audio payload arrives as the
// multipart "audio" field.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	audio, err := s.audioUpload(c)
	if err != nil {
		return nil
	}
	defer audio.Close()

	post, err := s.postService.CreatePost(c.Context(), s.currentUserID(c), audio)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 25)

	posts, err := s.postService.ListPosts(c.Context(), service.ListPostsInput{
		Limit:         p.Limit,
		Offset:        p.Offset,
		CurrentUserID: s.currentUserID(c),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":  posts,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), postID, s.currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(post)
}

// Listen handles POST /api/posts/:id/listen. Replayed listens by the
// same user do not bump the counter again.
func (s *Server) Listen(c *fiber.Ctx) error {
	postID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Listen(c.Context(), s.currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(post)
}

// VoteDelete handles POST /api/posts/:id/vote-delete. When the vote
// crosses the removal threshold the post and its comments are gone by
// the time the response is written.
func (s *Server) VoteDelete(c *fiber.Ctx) error {
	postID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.moderationService.CastDeleteVote(c.Context(), s.currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if result.Deleted {
		return c.JSON(fiber.Map{"deleted": true})
	}
	return c.JSON(fiber.Map{
		"deleted": false,
		"post":    result.Post,
	})
}

// ReportPost handles POST /api/posts/:id/report
func (s *Server) ReportPost(c *fiber.Ctx) error {
	postID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.moderationService.ReportPost(c.Context(), s.currentUserID(c), postID, req.Reason); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reported": true})
}
