package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/provider"
)

// BrainstormRequest is the body of POST /brainstorm.
type BrainstormRequest struct {
	UserID      string          `json:"user_id"`
	ProjectID   string          `json:"project_id"`
	ProjectName string          `json:"project_name"`
	IdeaSeed    string          `json:"idea_seed"`
	Constraints json.RawMessage `json:"constraints"`
	Providers   []string        `json:"providers"`
}

// StageRequest is the body of POST /synthesize and POST /bootstrap.
type StageRequest struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Prefer    string `json:"prefer"`
}

// ResearchRequest is the body of POST /research.
type ResearchRequest struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Prompt    string `json:"prompt"`
	Prefer    string `json:"prefer"`
}

// DownloadRequest is the body of POST /download.
type DownloadRequest struct {
	ProjectID string `json:"project_id"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.SendString("pong")
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.SendString("factory OK")
}

// owner resolves the request owner, falling back to the configured default.
func (s *Server) owner(userID string) project.Owner {
	if o := project.Owner(strings.TrimSpace(userID)); o != "" {
		return o
	}
	return s.config.DefaultOwner
}

// prefer parses an optional provider preference.
func prefer(s string) (provider.Name, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	n, err := provider.ParseName(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", pipeline.ErrValidation, err)
	}
	return n, nil
}

func (s *Server) handleBrainstorm(c *fiber.Ctx) error {
	var req BrainstormRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}

	out, err := s.pipeline.Brainstorm(c.UserContext(), s.owner(req.UserID), pipeline.BrainstormInput{
		ProjectID:   req.ProjectID,
		ProjectName: req.ProjectName,
		IdeaSeed:    req.IdeaSeed,
		Constraints: req.Constraints,
		Providers:   provider.ParseNames(req.Providers),
	})
	if err != nil {
		return s.fail(c, err)
	}

	return okJSON(c, fiber.Map{
		"project_id": out.ProjectID,
		"run_id":     out.RunID,
		"results":    out.Results,
	})
}

func (s *Server) handleSynthesize(c *fiber.Ctx) error {
	var req StageRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}
	pref, err := prefer(req.Prefer)
	if err != nil {
		return s.fail(c, err)
	}

	out, err := s.pipeline.Synthesize(c.UserContext(), s.owner(req.UserID), req.ProjectID, pipeline.StageOptions{Prefer: pref})
	if err != nil {
		return s.fail(c, err)
	}

	return okJSON(c, fiber.Map{
		"project_id":  out.ProjectID,
		"run_id":      out.RunID,
		"provider":    out.Provider,
		"raw":         out.Raw,
		"synthesized": out.Synthesized,
	})
}

func (s *Server) handleBootstrap(c *fiber.Ctx) error {
	var req StageRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}
	pref, err := prefer(req.Prefer)
	if err != nil {
		return s.fail(c, err)
	}

	out, err := s.pipeline.Bootstrap(c.UserContext(), s.owner(req.UserID), req.ProjectID, pipeline.StageOptions{Prefer: pref})
	if err != nil {
		return s.fail(c, err)
	}

	return okJSON(c, fiber.Map{
		"project_id": out.ProjectID,
		"run_id":     out.RunID,
		"provider":   out.Provider,
		"stored":     out.Stored,
	})
}

func (s *Server) handleResearch(c *fiber.Ctx) error {
	var req ResearchRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}
	pref, err := prefer(req.Prefer)
	if err != nil {
		return s.fail(c, err)
	}

	out, err := s.pipeline.Research(c.UserContext(), s.owner(req.UserID), req.ProjectID, pipeline.ResearchInput{
		Prompt: req.Prompt,
		Prefer: pref,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return okJSON(c, fiber.Map{
		"project_id": out.ProjectID,
		"run_id":     out.RunID,
		"provider":   out.Provider,
		"raw":        out.Raw,
		"research":   out.Research,
	})
}

// handleDownload streams the repo pack as a gzip compressed tar archive.
func (s *Server) handleDownload(c *fiber.Ctx) error {
	var req DownloadRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return s.fail(c, fmt.Errorf("%w: project_id required", pipeline.ErrValidation))
	}

	var buf bytes.Buffer
	if err := s.pipeline.Download(c.UserContext(), req.ProjectID, &buf); err != nil {
		return s.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/gzip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=repo-pack-%s.tar.gz", req.ProjectID))
	return c.Send(buf.Bytes())
}

func (s *Server) handleGetProject(c *fiber.Ctx) error {
	view, err := s.pipeline.Project(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}

	return okJSON(c, fiber.Map{
		"project":     view.Project,
		"latest_runs": view.LatestRuns,
	})
}

func (s *Server) handleListArtifacts(c *fiber.Ctx) error {
	artifacts, err := s.pipeline.Artifacts(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if artifacts == nil {
		artifacts = []project.Artifact{}
	}

	return okJSON(c, fiber.Map{
		"artifacts": artifacts,
	})
}
