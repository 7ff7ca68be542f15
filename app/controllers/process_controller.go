package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/dispatch"
	"github.com/ManuelReschke/CalSync/internal/pkg/processor"
)

// ProcessController is the internal trigger the dispatcher posts to.
type ProcessController struct {
	proc dispatch.EventProcessor
}

func NewProcessController(proc dispatch.EventProcessor) *ProcessController {
	return &ProcessController{proc: proc}
}

// HandleProcess runs the processor synchronously for one stored event.
func (pc *ProcessController) HandleProcess(c *fiber.Ctx) error {
	var req models.DispatchRequest
	if err := parseJSON(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing eventKey parameter"})
	}
	hint, err := parseProvider(req.Source)
	if err != nil {
		return errorResponse(c, err)
	}

	result, err := pc.proc.Process(c.UserContext(), req.EventKey, hint)
	if err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found"})
		}
		body := fiber.Map{"error": apperror.Code(err), "message": err.Error()}
		if result != nil {
			body["result"] = result
		}
		status := apperror.HTTPStatus(err)
		if errors.Is(err, processor.ErrTerminal) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(body)
	}

	return c.JSON(fiber.Map{"success": true, "result": result})
}
