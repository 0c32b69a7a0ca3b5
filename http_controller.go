package membership

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Controller holds the JSON handlers. Responses share one envelope:
// {"success": bool, "message": string, "data": any}.
type Controller struct {
	auth      *Authenticator
	lifecycle *Lifecycle
	admin     *AdminService
	logger    Logger
}

// NewController wires the handlers over the domain services.
func NewController(auth *Authenticator, lifecycle *Lifecycle, admin *AdminService, logger Logger) *Controller {
	if logger == nil {
		logger = defLogger{}
	}
	return &Controller{
		auth:      auth,
		lifecycle: lifecycle,
		admin:     admin,
		logger:    logger,
	}
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// Register accepts the core registration payload and leaves the
// account pending until the email link is followed.
func (h *Controller) Register(c *fiber.Ctx) error {
	payload := new(RegisterInput)
	if err := c.BodyParser(payload); err != nil {
		h.logger.Error("register parse payload: %v", err)
		return ErrValidationFailed
	}

	if err := h.lifecycle.Register(c.UserContext(), *payload); err != nil {
		return err
	}

	return respond(c, fiber.StatusCreated,
		"Registration received. Check your email to confirm your account.", nil)
}

// VerifyEmail consumes the token from the verification link.
func (h *Controller) VerifyEmail(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	member, err := h.lifecycle.Verify(c.UserContext(), token)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Email confirmed. You can now log in.", fiber.Map{
		"member": member,
	})
}

// LoginPayload carries the credentials.
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login exchanges credentials for a bearer token.
func (h *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		h.logger.Error("login parse payload: %v", err)
		return ErrValidationFailed
	}

	if err := payload.Validate(); err != nil {
		return ErrInvalidCredentials
	}

	token, member, err := h.auth.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	completeness := EvaluateCompleteness(member)

	return respond(c, fiber.StatusOK, "Login successful", fiber.Map{
		"token":        token,
		"member":       member,
		"completeness": completeness,
	})
}

// Logout acknowledges the client discarding its token. Sessions are
// stateless so there is nothing to revoke server side.
func (h *Controller) Logout(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, "Logged out", nil)
}

// ChangePasswordPayload swaps the credential.
type ChangePasswordPayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(minPasswordLength, 100)),
	)
}

func (h *Controller) ChangePassword(c *fiber.Ctx) error {
	member := MemberFromCtx(c)

	payload := new(ChangePasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return ErrValidationFailed
	}

	if err := payload.Validate(); err != nil {
		return errWithMetadata(ErrValidationFailed, map[string]any{"detail": err.Error()})
	}

	if err := h.auth.ChangePassword(c.UserContext(), member.ID, payload.CurrentPassword, payload.NewPassword); err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Password changed", nil)
}

// ExternalCallback seeds or links a member from a confirmed external
// identity.
func (h *Controller) ExternalCallback(c *fiber.Ctx) error {
	payload := new(ExternalIdentity)
	if err := c.BodyParser(payload); err != nil {
		return ErrValidationFailed
	}

	member, err := h.lifecycle.RegisterExternal(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	token, err := h.auth.tokens.Generate(member.ID)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Login successful", fiber.Map{
		"token":        token,
		"member":       member,
		"completeness": EvaluateCompleteness(member),
	})
}

// GetProfile returns the caller's own record.
func (h *Controller) GetProfile(c *fiber.Ctx) error {
	member := MemberFromCtx(c)
	return respond(c, fiber.StatusOK, "", fiber.Map{
		"member": member,
	})
}

// ProfileStatus reports completion progress and missing fields.
func (h *Controller) ProfileStatus(c *fiber.Ctx) error {
	member := MemberFromCtx(c)
	return respond(c, fiber.StatusOK, "", fiber.Map{
		"completeness": EvaluateCompleteness(member),
	})
}

// CompleteProfile merges the extended fields into the caller's record.
func (h *Controller) CompleteProfile(c *fiber.Ctx) error {
	member := MemberFromCtx(c)

	payload := new(ExtendedProfile)
	if err := c.BodyParser(payload); err != nil {
		return ErrValidationFailed
	}

	updated, completeness, err := h.lifecycle.CompleteProfile(c.UserContext(), member, *payload)
	if err != nil {
		return err
	}

	message := "Profile updated"
	if completeness.Completed {
		message = "Profile complete"
	}

	return respond(c, fiber.StatusOK, message, fiber.Map{
		"member":       updated,
		"completeness": completeness,
	})
}

func (h *Controller) AdminListMembers(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	members, err := h.admin.ListMembers(c.UserContext(), caller.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{
		"members": members,
		"total":   len(members),
	})
}

func (h *Controller) AdminSearchMembers(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)

	limit, _ := strconv.Atoi(c.Query("limit"))
	members, err := h.admin.Search(c.UserContext(), caller.ID, c.Query("q"), limit)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "", fiber.Map{
		"members": members,
		"total":   len(members),
	})
}

func (h *Controller) AdminGetMember(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	targetID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	member, err := h.admin.GetMember(c.UserContext(), caller.ID, targetID)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "", fiber.Map{
		"member": member,
	})
}

func (h *Controller) AdminUpdateMember(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	targetID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	payload := new(MemberUpdate)
	if err := c.BodyParser(payload); err != nil {
		return ErrValidationFailed
	}

	member, err := h.admin.UpdateMember(c.UserContext(), caller.ID, targetID, *payload)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Member updated", fiber.Map{
		"member": member,
	})
}

// StatusPayload toggles the active flag.
type StatusPayload struct {
	Active bool `form:"active" json:"active"`
}

func (h *Controller) AdminSetStatus(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	targetID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	payload := new(StatusPayload)
	if err := c.BodyParser(payload); err != nil {
		return ErrValidationFailed
	}

	member, err := h.admin.SetActive(c.UserContext(), caller.ID, targetID, payload.Active)
	if err != nil {
		return err
	}

	message := "Member deactivated"
	if payload.Active {
		message = "Member reactivated"
	}

	return respond(c, fiber.StatusOK, message, fiber.Map{
		"member": member,
	})
}

func (h *Controller) AdminPromote(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	targetID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	member, err := h.admin.Promote(c.UserContext(), caller.ID, targetID)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Member promoted to admin", fiber.Map{
		"member": member,
	})
}

func (h *Controller) AdminStats(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	stats, err := h.admin.DashboardStats(c.UserContext(), caller.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{
		"stats": stats,
	})
}

func (h *Controller) SuperListAdmins(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	admins, err := h.admin.ListAdmins(c.UserContext(), caller.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{
		"admins": admins,
		"total":  len(admins),
	})
}

func (h *Controller) SuperStats(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	stats, err := h.admin.SystemStats(c.UserContext(), caller.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{
		"stats": stats,
	})
}

func (h *Controller) SuperDemote(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	targetID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	member, err := h.admin.Demote(c.UserContext(), caller.ID, targetID)
	if err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Admin demoted to member", fiber.Map{
		"member": member,
	})
}

func (h *Controller) SuperDeleteMember(c *fiber.Ctx) error {
	caller := MemberFromCtx(c)
	targetID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.admin.Delete(c.UserContext(), caller.ID, targetID); err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Member deleted", nil)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errWithMetadata(ErrValidationFailed, map[string]any{
			"param": name,
		})
	}
	return id, nil
}
