package server

import (
	"voicenet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/users/:username. Stats are recomputed
// from live rows on every call.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	username := c.Params("username")

	profile, err := s.profileService.GetProfile(c.Context(), username)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(profile)
}

// GetUserPosts handles GET /api/users/:username/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	username := c.Params("username")
	p := parsePagination(c, 25)

	user, err := s.userService.GetByUsername(c.Context(), username)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	posts, err := s.postService.ListByAuthor(c.Context(), user.ID, s.currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":  posts,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// UpdateMe handles PUT /api/users/me. Only the username is mutable here;
// audio fields have their own endpoints.
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username is required"))
	}

	user, err := s.userService.Rename(c.Context(), s.currentUserID(c), req.Username)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"user": user})
}

// SetBio handles POST /api/users/me/bio with a multipart "audio" field.
func (s *Server) SetBio(c *fiber.Ctx) error {
	audio, err := s.audioUpload(c)
	if err != nil {
		return nil
	}
	defer audio.Close()

	user, err := s.userService.SetBioAudio(c.Context(), s.currentUserID(c), audio)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"user": user})
}

// SetMusic handles POST /api/users/me/music with a multipart "audio" field.
func (s *Server) SetMusic(c *fiber.Ctx) error {
	audio, err := s.audioUpload(c)
	if err != nil {
		return nil
	}
	defer audio.Close()

	user, err := s.userService.SetMusicAudio(c.Context(), s.currentUserID(c), audio)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"user": user})
}

// ClearMusic handles DELETE /api/users/me/music.
func (s *Server) ClearMusic(c *fiber.Ctx) error {
	user, err := s.userService.ClearMusicAudio(c.Context(), s.currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"user": user})
}
