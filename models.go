package membership

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Member is the central account entity. Core fields are collected at
// registration; extended fields are fillable after first login.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:mbr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         Role      `bun:"member_role,notnull" json:"role,omitempty"`

	Verified         bool `bun:"is_verified" json:"is_verified"`
	Active           bool `bun:"is_active" json:"is_active"`
	ProfileCompleted bool `bun:"profile_completed" json:"profile_completed"`

	// Core profile, required at registration.
	FirstName        string `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName         string `bun:"last_name,notnull" json:"last_name,omitempty"`
	Age              int    `bun:"age" json:"age,omitempty"`
	PhoneCode        string `bun:"phone_code" json:"phone_code,omitempty"`
	Phone            string `bun:"phone_number" json:"phone_number,omitempty"`
	Country          string `bun:"country" json:"country,omitempty"`
	Department       string `bun:"department" json:"department,omitempty"`
	Commune          string `bun:"commune" json:"commune,omitempty"`
	Occupation       string `bun:"occupation" json:"occupation,omitempty"`
	Availability     string `bun:"availability" json:"availability,omitempty"`
	Motivation       string `bun:"motivation" json:"motivation,omitempty"`
	ValuesCommitment bool   `bun:"values_commitment" json:"values_commitment"`
	DataConsent      bool   `bun:"data_consent" json:"data_consent"`

	// Extended profile, fillable after first login.
	City             string `bun:"city" json:"city,omitempty"`
	MobilizationCity string `bun:"mobilization_city" json:"mobilization_city,omitempty"`
	Section          string `bun:"section" json:"section,omitempty"`
	Interests        string `bun:"interests" json:"interests,omitempty"`

	MembershipNumber  string     `bun:"membership_number,unique" json:"membership_number,omitempty"`
	VerificationToken string     `bun:"verification_token" json:"-"`
	ExternalID        string     `bun:"external_id" json:"external_id,omitempty"`
	CreatedBy         *uuid.UUID `bun:"created_by,nullzero,type:uuid" json:"created_by,omitempty"`

	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	LoggedInAt        *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	LastAdminUpdateAt *time.Time `bun:"last_admin_update_at,nullzero" json:"last_admin_update_at,omitempty"`
}

// EnsureDefaults normalizes a record before its first persist.
func (m *Member) EnsureDefaults() {
	if m.Role == "" {
		m.Role = RoleMember
	}
	m.Email = NormalizeEmail(m.Email)
	if m.MembershipNumber == "" {
		m.MembershipNumber = NewMembershipNumber()
	}
}

// FullName is used in notifications and admin listings.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// PendingRegistration holds submitted registration data until the email
// is verified. At most one row per email; promotion deletes the row.
type PendingRegistration struct {
	bun.BaseModel `bun:"table:pending_registrations,alias:pnd"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`

	FirstName        string `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName         string `bun:"last_name,notnull" json:"last_name,omitempty"`
	Age              int    `bun:"age" json:"age,omitempty"`
	PhoneCode        string `bun:"phone_code" json:"phone_code,omitempty"`
	Phone            string `bun:"phone_number" json:"phone_number,omitempty"`
	Country          string `bun:"country" json:"country,omitempty"`
	Department       string `bun:"department" json:"department,omitempty"`
	Commune          string `bun:"commune" json:"commune,omitempty"`
	Occupation       string `bun:"occupation" json:"occupation,omitempty"`
	Availability     string `bun:"availability" json:"availability,omitempty"`
	Motivation       string `bun:"motivation" json:"motivation,omitempty"`
	ValuesCommitment bool   `bun:"values_commitment" json:"values_commitment"`
	DataConsent      bool   `bun:"data_consent" json:"data_consent"`

	VerificationToken string     `bun:"verification_token,notnull,unique" json:"-"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ExpiresAt returns the instant after which the registration can no
// longer be verified.
func (p *PendingRegistration) ExpiresAt(ttl time.Duration) time.Time {
	if p.CreatedAt == nil {
		return time.Time{}
	}
	return p.CreatedAt.Add(ttl)
}

// NormalizeEmail lowercases and trims an email so lookups are
// case-insensitive everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewVerificationToken returns a 64-char hex token from a CSPRNG.
func NewVerificationToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read only fails if the OS entropy source is broken
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// NewMembershipNumber produces a human-facing identifier of the form
// MBR-<year>-<6 digits>. Uniqueness is enforced by the schema; callers
// retry on the (vanishingly rare) collision.
func NewMembershipNumber() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("MBR-%d-%06d", time.Now().Year(), n.Int64())
}
