// Package web provides the HTTP handlers of the playback control API.
package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/storyflow/pkg/document"
	"github.com/dukex/storyflow/pkg/registry"
	"github.com/dukex/storyflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	graphs    *services.Graphs
	runs      *services.Runs
	validator *validator.Validate
	registry  *registry.Registry
}

func NewAPIHandlers(
	graphs *services.Graphs,
	runs *services.Runs,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		graphs:    graphs,
		runs:      runs,
		validator: validator,
		registry:  registry,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.graphs.HealthCheck()
	storeCheck, storeOk := h.runs.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Storyflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && storeOk {
		status = "healthy"
		message = "Storyflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"saves":    storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(TransformNodeTypes(h.registry.GetAvailableNodes()))
}

func (h *APIHandlers) GetGraphs(c fiber.Ctx) error {
	graphs, err := h.graphs.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"graphs":      graphs,
		"total_count": len(graphs),
	})
}

// CreateGraph registers a graph document sent as JSON, or as YAML when the
// content type says so. ?replace=true overwrites an existing graph.
func (h *APIHandlers) CreateGraph(c fiber.Ctx) error {
	format := document.FormatJSON
	if strings.Contains(c.Get(fiber.HeaderContentType), "yaml") {
		format = document.FormatYAML
	}

	doc, err := document.Parse(c.Body(), format)
	if err != nil {
		return badRequest(c, err.Error())
	}

	replace := false

	if replaceStr := c.Query("replace"); replaceStr != "" {
		replace, err = strconv.ParseBool(replaceStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}
	}

	summary, err := h.graphs.Create(c.Context(), doc, replace)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(summary)
}

func (h *APIHandlers) GetGraph(c fiber.Ctx) error {
	id := c.Params("id")

	if id == "" {
		return badRequest(c, "Graph ID is required")
	}

	summary, err := h.graphs.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(summary)
}

func (h *APIHandlers) DeleteGraph(c fiber.Ctx) error {
	err := h.graphs.Delete(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) StartRun(c fiber.Ctx) error {
	var req StartRunRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	status, err := h.runs.Start(c.Context(), c.Params("id"), req.FromNode)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(status)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	runs := h.runs.List()

	return c.JSON(fiber.Map{
		"runs":        runs,
		"total_count": len(runs),
	})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	status, err := h.runs.Get(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) PauseRun(c fiber.Ctx) error {
	return h.respondWithRun(c, h.runs.Pause(c.Params("id")))
}

func (h *APIHandlers) ContinueRun(c fiber.Ctx) error {
	return h.respondWithRun(c, h.runs.Continue(c.Params("id")))
}

func (h *APIHandlers) StopRun(c fiber.Ctx) error {
	return h.respondWithRun(c, h.runs.Stop(c.Params("id")))
}

func (h *APIHandlers) JumpRun(c fiber.Ctx) error {
	var req JumpRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.respondWithRun(c, h.runs.Jump(c.Context(), c.Params("id"), req.NodeID))
}

func (h *APIHandlers) AdvanceRun(c fiber.Ctx) error {
	var req AdvanceRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	return h.respondWithRun(c, h.runs.Advance(c.Params("id"), req.NodeID))
}

func (h *APIHandlers) ChooseRun(c fiber.Ctx) error {
	var req ChoiceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.respondWithRun(c, h.runs.Choose(c.Params("id"), req.NodeID, *req.Index))
}

func (h *APIHandlers) SaveRun(c fiber.Ctx) error {
	slot := c.Params("slot")

	if err := h.validator.Struct(SlotParams{Slot: slot}); err != nil {
		return badRequest(c, "Invalid save slot: "+err.Error())
	}

	snapshot, err := h.runs.Save(c.Context(), c.Params("id"), slot)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(snapshot)
}

func (h *APIHandlers) GetSaves(c fiber.Ctx) error {
	saves, err := h.runs.Saves(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"saves":       saves,
		"total_count": len(saves),
	})
}

func (h *APIHandlers) LoadSave(c fiber.Ctx) error {
	slot := c.Params("slot")

	if err := h.validator.Struct(SlotParams{Slot: slot}); err != nil {
		return badRequest(c, "Invalid save slot: "+err.Error())
	}

	var req LoadRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	status, err := h.runs.Load(c.Context(), c.Params("id"), slot, req.RunID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) DeleteSave(c fiber.Ctx) error {
	err := h.runs.DeleteSave(c.Context(), c.Params("id"), c.Params("slot"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// respondWithRun maps err or returns the run's status after a control call.
func (h *APIHandlers) respondWithRun(c fiber.Ctx, err error) error {
	if err != nil {
		return handleServiceError(c, err)
	}

	status, err := h.runs.Get(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}
