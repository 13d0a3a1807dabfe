package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/relay/pkg/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionsResponse lists session records, newest first.
type SessionsResponse struct {
	Count    int                      `json:"count"`
	Sessions []*storage.SessionRecord `json:"sessions"`
}

// StatsResponse aggregates every recorded session.
type StatsResponse = storage.Stats

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListSessions returns the most recent sessions. The "limit" query
// parameter defaults to 50 and is capped at 1000.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = min(n, maxListLimit)
	}

	recs, err := s.driver.List(c.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}

	if recs == nil {
		recs = []*storage.SessionRecord{}
	}

	return c.JSON(SessionsResponse{Count: len(recs), Sessions: recs})
}

// handleGetSession returns a single session by its id.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	rec, err := s.driver.Get(c.Context(), id)
	if err != nil {
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
		}
		s.logger.Error("failed to get session", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get session"})
	}

	return c.JSON(rec)
}

// handleSessionStats returns aggregates over every recorded session,
// computed by the storage backend.
func (s *Server) handleSessionStats(c *fiber.Ctx) error {
	stats, err := s.driver.Stats(c.Context())
	if err != nil {
		s.logger.Error("failed to aggregate sessions", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to aggregate sessions"})
	}

	return c.JSON(stats)
}
