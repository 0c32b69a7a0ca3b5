package membership

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	goerrors "github.com/goliatone/go-errors"
)

const memberLocalsKey = "membership:member"

// Server wires the HTTP surface over the domain services.
type Server struct {
	app        *fiber.App
	cfg        *Config
	logger     Logger
	auth       *Authenticator
	lifecycle  *Lifecycle
	admin      *AdminService
	metrics    *Metrics
	controller *Controller
}

// ServerOption customizes server construction.
type ServerOption func(*Server)

// WithServerLogger overrides the default logger.
func WithServerLogger(logger Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServerMetrics mounts the /metrics endpoint.
func WithServerMetrics(m *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer builds the fiber app with all routes registered.
func NewServer(cfg *Config, auth *Authenticator, lifecycle *Lifecycle, admin *AdminService, opts ...ServerOption) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    defLogger{},
		auth:      auth,
		lifecycle: lifecycle,
		admin:     admin,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "memberd",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: s.errorHandler,
	})

	s.controller = NewController(auth, lifecycle, admin, s.logger)
	s.registerRoutes()

	return s
}

// App exposes the underlying fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen() error {
	s.logger.Info("listening on %s", s.cfg.Addr())
	return s.app.Listen(s.cfg.Addr())
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	api := s.app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", s.controller.Register)
	authRoutes.Get("/verify-email/:token", s.controller.VerifyEmail)
	authRoutes.Post("/login", s.controller.Login)
	authRoutes.Post("/external/callback", s.controller.ExternalCallback)
	authRoutes.Post("/logout", s.requireSession, s.controller.Logout)
	authRoutes.Post("/change-password", s.requireSession, s.controller.ChangePassword)

	profile := api.Group("/profile", s.requireSession)
	profile.Get("/", s.controller.GetProfile)
	profile.Get("/status", s.controller.ProfileStatus)
	profile.Put("/complete", s.controller.CompleteProfile)

	admin := api.Group("/admin", s.requireSession, s.requireRole(RoleAdmin))
	admin.Get("/members", s.controller.AdminListMembers)
	admin.Get("/members/search", s.controller.AdminSearchMembers)
	admin.Get("/members/:id", s.controller.AdminGetMember)
	admin.Patch("/members/:id", s.controller.AdminUpdateMember)
	admin.Patch("/members/:id/status", s.controller.AdminSetStatus)
	admin.Post("/members/:id/promote", s.controller.AdminPromote)
	admin.Get("/stats", s.controller.AdminStats)

	super := api.Group("/superadmin", s.requireSession, s.requireRole(RoleSuperAdmin))
	super.Get("/admins", s.controller.SuperListAdmins)
	super.Get("/stats", s.controller.SuperStats)
	super.Post("/admins/:id/demote", s.controller.SuperDemote)
	super.Delete("/members/:id", s.controller.SuperDeleteMember)
}

// requireSession resolves the bearer token to a stored member and
// stashes it in Locals. Role decisions downstream read the store
// record, never the token payload.
func (s *Server) requireSession(c *fiber.Ctx) error {
	raw := bearerToken(c)
	if raw == "" {
		return ErrInvalidOrExpiredToken
	}

	member, err := s.auth.MemberFromToken(c.UserContext(), raw)
	if err != nil {
		return err
	}

	c.Locals(memberLocalsKey, member)
	return c.Next()
}

func (s *Server) requireRole(min Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		member := MemberFromCtx(c)
		if member == nil || !member.Role.IsAtLeast(min) {
			return ErrForbidden
		}
		return c.Next()
	}
}

// MemberFromCtx returns the authenticated member stashed by the
// session middleware, or nil.
func MemberFromCtx(c *fiber.Ctx) *Member {
	member, _ := c.Locals(memberLocalsKey).(*Member)
	return member
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// categoryStatus maps wrapped errors that never set an explicit code.
func categoryStatus(cat goerrors.Category) int {
	switch cat {
	case goerrors.CategoryValidation:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status == 0 {
			status = categoryStatus(richErr.Category)
		}
		if status < fiber.StatusBadRequest || status > 599 {
			status = fiber.StatusInternalServerError
		}
		if status >= fiber.StatusInternalServerError {
			s.logger.Error("request failed: %v", err)
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": richErr.Message,
			"code":    richErr.TextCode,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"message": fiberErr.Message,
		})
	}

	s.logger.Error("request failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "internal server error",
	})
}
