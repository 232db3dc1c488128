package httpapi

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/directory"
)

// requireAuth resolves the bearer token to a user ID in c.Locals("userID").
// Websocket clients cannot set headers, so a token query parameter is
// accepted too.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	token := ""
	if h := c.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	} else if q := c.Query("token"); q != "" {
		token = q
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
	}
	userID, err := s.auth.VerifyToken(token)
	if err != nil {
		return s.renderError(c, err)
	}
	c.Locals("userID", userID)
	return c.Next()
}

func currentUser(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

type sessionResponse struct {
	Token   string             `json:"token"`
	Profile directory.Identity `json:"profile"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
		Title       string `json:"title"`
		Company     string `json:"company"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	p, err := s.auth.Register(c.Context(), auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Title:       req.Title,
		Company:     req.Company,
	})
	if err != nil {
		return s.renderError(c, err)
	}
	token, err := s.auth.IssueToken(p.ID)
	if err != nil {
		return s.renderError(c, err)
	}
	ident, err := s.dir.Lookup(c.Context(), p.ID)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse{Token: token, Profile: *ident})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	token, p, err := s.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return s.renderError(c, err)
	}
	ident, err := s.dir.Lookup(c.Context(), p.ID)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(sessionResponse{Token: token, Profile: *ident})
}

// Version is reported by /api/health and huddlectl.
const Version = "0.1.0"

func (s *Server) handleHealth(c *fiber.Ctx) error {
	profiles, err := s.db.ProfileCount()
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":   s.machine.Current(),
		"since":    s.machine.Since().UnixMilli(),
		"version":  Version,
		"profiles": profiles,
		"realtime": s.feed != nil,
	})
}

func (s *Server) handleSearchProfiles(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	idents, err := s.dir.Search(c.Context(), c.Query("q"), limit)
	if err != nil {
		return s.renderError(c, err)
	}
	if idents == nil {
		idents = []directory.Identity{}
	}
	return c.JSON(fiber.Map{"profiles": idents})
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	ident, err := s.dir.Lookup(c.Context(), c.Params("id"))
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(ident)
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	var req struct {
		DisplayName *string `json:"display_name"`
		Title       *string `json:"title"`
		Company     *string `json:"company"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	userID := currentUser(c)
	p, err := s.db.GetProfile(userID)
	if err != nil {
		return s.renderError(c, err)
	}
	if p == nil {
		return s.renderError(c, directory.ErrNotFound)
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return badRequest(c, "display_name cannot be empty")
		}
		p.DisplayName = name
	}
	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Company != nil {
		p.Company = strings.TrimSpace(*req.Company)
	}
	if req.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := s.db.UpdateProfile(p); err != nil {
		return s.renderError(c, err)
	}
	ident, err := s.dir.Lookup(c.Context(), userID)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(ident)
}

func (s *Server) handleResolveThread(c *fiber.Ctx) error {
	var req struct {
		OtherUserID string `json:"other_user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if req.OtherUserID == "" {
		return badRequest(c, "other_user_id is required")
	}

	threadID, err := s.resolver.ResolveOrCreate(c.Context(), currentUser(c), req.OtherUserID)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(fiber.Map{"thread_id": threadID})
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	summaries, err := s.aggregator.ListConversations(c.Context(), currentUser(c))
	if err != nil {
		return s.renderError(c, err)
	}
	// Clients without a live socket refetch at this cadence.
	return c.JSON(fiber.Map{
		"conversations":    summaries,
		"poll_interval_ms": 10_000,
	})
}

func (s *Server) handleListMessages(c *fiber.Ctx) error {
	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := s.stream.Messages(c.Context(), c.Params("id"), currentUser(c), before, limit)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	m, err := s.stream.Send(c.Context(), c.Params("id"), currentUser(c), req.Body)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *Server) handleMarkRead(c *fiber.Ctx) error {
	if err := s.readState.MarkRead(c.Context(), c.Params("id"), currentUser(c)); err != nil {
		return s.renderError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "multipart field 'file' is required")
	}
	f, err := fh.Open()
	if err != nil {
		return s.renderError(c, err)
	}
	defer func() { _ = f.Close() }()

	url, err := s.blobs.Save(currentUser(c), fh.Filename, f)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
