package interview

import (
	"bufio"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ultraintel/counselor-api/services"
	"github.com/ultraintel/counselor-api/utils/response"
	"github.com/ultraintel/counselor-api/utils/sse"
	"github.com/ultraintel/counselor-api/utils/validation"
)

// InterviewHandler exposes the interview flow over HTTP
type InterviewHandler struct {
	interviews *services.InterviewService
	validator  *validation.Validator
}

// NewInterviewHandler creates a new interview handler
func NewInterviewHandler(interviews *services.InterviewService) *InterviewHandler {
	return &InterviewHandler{
		interviews: interviews,
		validator:  validation.NewValidator(),
	}
}

// SendMessageRequest is the body of a chat message
type SendMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
	Stream  bool   `json:"stream"`
}

// BinaryAnswerRequest answers a yes/no gate question
type BinaryAnswerRequest struct {
	Answer string `json:"answer" validate:"required,max=50"`
}

// AddItemRequest submits one freeform item
type AddItemRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"required,min=1,max=4000"`
}

// Start creates a subject and opens a new interview session
// POST /api/v1/interviews
func (h *InterviewHandler) Start(c *fiber.Ctx) error {
	var req services.CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.interviews.StartInterview(c.Context(), req)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Created(c, result)
}

// SendMessage processes one chat message, streaming the reply when asked
// POST /api/v1/interviews/:id/messages
func (h *InterviewHandler) SendMessage(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Stream {
		return h.streamMessage(c, sessionID, req.Message)
	}

	result, err := h.interviews.HandleMessage(c.Context(), sessionID, req.Message, nil)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, result)
}

// streamMessage relays the reply as SSE chunks, terminated by a done
// event carrying the final phase.
func (h *InterviewHandler) streamMessage(c *fiber.Ctx, sessionID, message string) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	ctx := c.Context()
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		if err := sse.SendStart(w); err != nil {
			return
		}

		result, err := h.interviews.HandleMessage(ctx, sessionID, message, func(chunk string) error {
			return sse.SendChunk(w, chunk)
		})
		if err != nil {
			sse.SendError(w, err)
			return
		}

		sse.SendDone(w, fiber.Map{
			"phase":                 result.Phase,
			"identified_milestones": result.IdentifiedMilestones,
		})
	})

	return nil
}

// AnswerQuestion resolves a yes/no gate question
// POST /api/v1/interviews/:id/responses
func (h *InterviewHandler) AnswerQuestion(c *fiber.Ctx) error {
	var req BinaryAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.interviews.HandleBinaryAnswer(c.Context(), c.Params("id"), req.Answer)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, result)
}

// AddItem appends one freeform item during a collection phase
// POST /api/v1/interviews/:id/items
func (h *InterviewHandler) AddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.interviews.AddItem(c.Context(), c.Params("id"), req.Title, req.Description)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, result)
}

// FinishItems ends the current collection phase
// POST /api/v1/interviews/:id/items/finish
func (h *InterviewHandler) FinishItems(c *fiber.Ctx) error {
	result, err := h.interviews.FinishItems(c.Context(), c.Params("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, result)
}

// GenerateSummary runs extraction and returns the ranked assignments
// POST /api/v1/interviews/:id/summary
func (h *InterviewHandler) GenerateSummary(c *fiber.Ctx) error {
	result, err := h.interviews.GenerateSummary(c.Context(), c.Params("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, result)
}

// GetAssignments returns the stored assignments grouped by dimension
// GET /api/v1/interviews/:id/assignments
func (h *InterviewHandler) GetAssignments(c *fiber.Ctx) error {
	result, err := h.interviews.GetAssignments(c.Context(), c.Params("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, result)
}

// GetStatus returns a read-only session snapshot
// GET /api/v1/interviews/:id
func (h *InterviewHandler) GetStatus(c *fiber.Ctx) error {
	result, err := h.interviews.Status(c.Context(), c.Params("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, result)
}

func (h *InterviewHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return response.SessionNotFound(c)
	case errors.Is(err, services.ErrNotAwaitingAnswer),
		errors.Is(err, services.ErrNotCollecting),
		errors.Is(err, services.ErrSummaryNotReady),
		errors.Is(err, services.ErrIllegalTransition):
		return response.Conflict(c, err.Error())
	default:
		return response.PersistenceError(c, err)
	}
}
