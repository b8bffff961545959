package server

import (
	"errors"
	"mime/multipart"

	"voicenet/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// maxAudioBytes caps a single uploaded recording.
const maxAudioBytes = 10 << 20 // 10 MiB

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// currentUserID returns the authenticated user's ID stored by AuthRequired.
func (s *Server) currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// parseUUID extracts a route parameter by name as a UUID string.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseUUID(c *fiber.Ctx, param string) (string, error) {
	raw := c.Params(param)
	if _, err := uuid.Parse(raw); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return "", errResponseWritten
	}
	return raw, nil
}

// audioUpload extracts the multipart "audio" file from the request,
// enforcing the size cap. On failure it writes the error response and
// returns errResponseWritten.
func (s *Server) audioUpload(c *fiber.Ctx) (multipart.File, error) {
	header, err := c.FormFile("audio")
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Audio file is required"))
		return nil, errResponseWritten
	}
	if header.Size > maxAudioBytes {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Audio file too large (max 10MB)"))
		return nil, errResponseWritten
	}

	f, err := header.Open()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
		return nil, errResponseWritten
	}
	return f, nil
}
