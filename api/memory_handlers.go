package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/factory/pkg/memory"
)

// RememberRequest is the body of POST /memory/remember.
type RememberRequest struct {
	UserID    string   `json:"user_id"`
	ProjectID string   `json:"project_id"`
	Kind      string   `json:"kind"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	Salience  *float64 `json:"salience"`
	Source    string   `json:"source"`
}

// RecallRequest is the body of POST /memory/recall.
type RecallRequest struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Query     string `json:"query"`
	K         int    `json:"k"`
}

// ForgetRequest is the body of POST /memory/forget.
type ForgetRequest struct {
	MemoryID string `json:"memory_id"`
}

// ReflectRequest is the body of POST /memory/reflect.
type ReflectRequest struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
}

// ReconcileRequest is the body of POST /memory/reconcile.
type ReconcileRequest struct {
	BatchSize int `json:"batch_size"`
}

// defaultRememberSalience applies to HTTP writes that omit salience.
const defaultRememberSalience = 0.6

func (s *Server) handleRemember(c *fiber.Ctx) error {
	var req RememberRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}
	if req.Salience == nil {
		req.Salience = memory.Salience(defaultRememberSalience)
	}
	source := memory.SourceUser
	if strings.TrimSpace(req.Source) != "" {
		source = memory.Source(strings.ToLower(strings.TrimSpace(req.Source)))
	}

	id, err := s.memory.Remember(c.UserContext(), memory.NewItem{
		Owner:     s.owner(req.UserID),
		ProjectID: req.ProjectID,
		Kind:      memory.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Text:      req.Text,
		Tags:      req.Tags,
		Salience:  req.Salience,
		Source:    source,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return okJSON(c, fiber.Map{"id": id})
}

func (s *Server) handleRecall(c *fiber.Ctx) error {
	var req RecallRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}

	items, err := s.memory.Recall(c.UserContext(), memory.Query{
		Owner:     s.owner(req.UserID),
		ProjectID: req.ProjectID,
		Text:      req.Query,
		K:         req.K,
	})
	if err != nil {
		return s.fail(c, err)
	}
	if items == nil {
		items = []memory.Recalled{}
	}

	return okJSON(c, fiber.Map{"items": items})
}

func (s *Server) handleForget(c *fiber.Ctx) error {
	var req ForgetRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}
	if err := s.memory.Forget(c.UserContext(), req.MemoryID); err != nil {
		return s.fail(c, err)
	}
	return okJSON(c, nil)
}

func (s *Server) handleReflect(c *fiber.Ctx) error {
	var req ReflectRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}

	res, err := s.memory.Reflect(c.UserContext(), s.owner(req.UserID), req.ProjectID)
	if err != nil {
		return s.fail(c, err)
	}

	created := res.Created
	if created == nil {
		created = []string{}
	}
	fields := fiber.Map{"created": created}
	if res.Message != "" {
		fields["message"] = res.Message
	}
	return okJSON(c, fields)
}

func (s *Server) handleReconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if err := readJSON(c, &req); err != nil {
		return s.fail(c, err)
	}

	res, err := s.memory.Reconcile(c.UserContext(), req.BatchSize)
	if err != nil {
		return s.fail(c, err)
	}

	return okJSON(c, fiber.Map{
		"scanned": res.Scanned,
		"removed": res.Removed,
		"batches": res.Batches,
	})
}
