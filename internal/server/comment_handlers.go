package server

import (
	"voicenet/internal/models"
	"voicenet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/:id/comments. The audio payload
// arrives as the multipart "audio" field.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	audio, err := s.audioUpload(c)
	if err != nil {
		return nil
	}
	defer audio.Close()

	comment, err := s.commentService.CreateComment(c.Context(), s.currentUserID(c), postID, audio)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/posts/:id/comments. Suppressed comments
// are omitted unless include_suppressed=true, in which case they come
// back flagged.
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.Context(), service.ListCommentsInput{
		PostID:            postID,
		CurrentUserID:     s.currentUserID(c),
		IncludeSuppressed: c.QueryBool("include_suppressed", false),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"comments": comments})
}

// ThumbsDown handles POST /api/comments/:id/thumbs-down. A second call
// by the same user retracts the first.
func (s *Server) ThumbsDown(c *fiber.Ctx) error {
	commentID, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.ToggleThumbsDown(c.Context(), s.currentUserID(c), commentID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(comment)
}
