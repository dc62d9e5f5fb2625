package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string            `json:"status"`
	App    string            `json:"app"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"app": AppName, "ok": true})
}

func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.HealthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status: "healthy",
		App:    AppName,
		Checks: make(map[string]string, len(s.checks)),
	}
	for _, nc := range s.checks {
		if err := nc.Check(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Checks[nc.Name] = err.Error()
			continue
		}
		resp.Checks[nc.Name] = "ok"
	}

	if resp.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func (s *Server) postRender(c *fiber.Ctx) error {
	var req render.Request
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
	}
	if c.Is("json") && !hasData(c.Body()) {
		return detail(c, fiber.StatusUnprocessableEntity, "data: field required")
	}

	if req.ReturnFile {
		return s.renderFile(c, &req)
	}

	accepted, err := s.submitter.Submit(c.UserContext(), &req)
	if err != nil {
		return s.submitError(c, err)
	}
	return c.JSON(accepted)
}

// hasData reports whether the JSON body carries a non-null data key. An
// explicit empty list is left to Validate.
func hasData(body []byte) bool {
	var fields struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	return len(fields.Data) > 0 && string(fields.Data) != "null"
}

// renderFile runs the render inside the request and streams the MP4 back
func (s *Server) renderFile(c *fiber.Ctx, req *render.Request) error {
	job, res, err := s.submitter.RenderNow(c.UserContext(), req, true)
	if err != nil {
		if job == nil {
			return s.submitError(c, err)
		}
		c.Set("X-Job-ID", job.ID)
		if errors.Is(err, render.ErrInvalidImage) {
			return detail(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		return detail(c, fiber.StatusInternalServerError, "Render failed: "+err.Error())
	}

	c.Set("X-Job-ID", job.ID)
	c.Set("X-Video-URL", res.URL)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", strconv.Quote(res.Filename)))
	c.Type("mp4")
	return c.Send(res.Video)
}

// submitError maps validation and queue errors to HTTP statuses
func (s *Server) submitError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, render.ErrEmptyData):
		return detail(c, fiber.StatusBadRequest, "Data is empty")
	case errors.Is(err, render.ErrInvalidScene),
		errors.Is(err, render.ErrDuplicateScene),
		errors.Is(err, render.ErrInvalidImage):
		return detail(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrQueueClosed):
		return detail(c, fiber.StatusServiceUnavailable, "Render queue is unavailable, please try again later")
	default:
		s.logger.Error().Err(err).Msg("submit render failed")
		return detail(c, fiber.StatusInternalServerError, "Internal server error: "+err.Error())
	}
}

func (s *Server) getRender(c *fiber.Ctx) error {
	job, err := s.jobs.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, render.ErrJobNotFound) {
		return detail(c, fiber.StatusNotFound, "Job not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(job.Public())
}
