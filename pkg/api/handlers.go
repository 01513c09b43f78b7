package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/posture"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":     "ok",
		"session_id": s.monitor.Stats().SessionID,
		"clients":    s.scoreHub.ClientCount(),
	}
	if s.connected != nil {
		up := s.connected()
		resp[s.transport] = up
		if !up {
			resp["status"] = "degraded"
		}
	}
	return c.JSON(resp)
}

// handleLatest returns the most recent snapshot.
func (s *Server) handleLatest(c *fiber.Ctx) error {
	return c.JSON(s.monitor.Latest())
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.monitor.Stats())
}

// ScoreResponse is the result of a dry-run score.
type ScoreResponse struct {
	Detected bool             `json:"detected"`
	Score    float64          `json:"score"`
	Metrics  *posture.Metrics `json:"metrics,omitempty"`
	Coaching string           `json:"coaching,omitempty"`
}

// handleScoreFrame feeds a posted frame into the session and returns the
// resulting snapshot. With ?dry_run=1 the frame is scored without
// touching the session.
func (s *Server) handleScoreFrame(c *fiber.Ctx) error {
	frame, err := pose.Decode(c.Body())
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !c.QueryBool("dry_run") {
		return c.JSON(s.monitor.Observe(frame, nil))
	}

	res := s.monitor.Process(frame)
	resp := ScoreResponse{Detected: res.Detected, Score: res.Score, Metrics: res.Metrics}
	if res.Detected {
		resp.Coaching = posture.Coach(res.Score, res.Metrics, s.settings.Get().Profile.BaselinePostureScore)
	}
	return c.JSON(resp)
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.settings.Get())
}

// handleUpdateConfig merges a partial settings document and applies it.
func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	if err := s.settings.Patch(c.Body()); err != nil {
		var ce *posture.ConfigError
		if errors.As(err, &ce) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
				"field": ce.Field,
			})
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(s.settings.Get())
}
