// Package admin handles administrator authentication and account management.
// Login is two-step: password first, then a TOTP code; the first successful
// password login returns an enrollment challenge instead of a code prompt.
package admin

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"saazebharat/internal/audit"
	"saazebharat/internal/database"
	"saazebharat/internal/model"
	"saazebharat/internal/token"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidTOTP        = errors.New("invalid authenticator code")
	ErrSelfDeletion       = errors.New("admins cannot delete their own account")
	ErrLastSuperAdmin     = errors.New("cannot delete the last super admin")
)

// dummyHash is compared against when the email is unknown, so a missing
// account takes as long as a wrong password.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

type Store interface {
	CreateAdmin(ctx context.Context, admin model.AdminAccount) error
	GetAdminByID(ctx context.Context, id uuid.UUID) (model.AdminAccount, error)
	GetAdminByEmail(ctx context.Context, email string) (model.AdminAccount, error)
	ListAdmins(ctx context.Context) ([]model.AdminAccount, error)
	DeleteAdmin(ctx context.Context, id uuid.UUID) error
	CountSuperAdmins(ctx context.Context) (int64, error)
	SetAdminOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	TouchAdminLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Authenticator struct {
	store      Store
	tokens     *token.Service
	audit      *audit.Recorder
	totpIssuer string
	logger     *slog.Logger
}

func NewAuthenticator(store Store, tokens *token.Service, recorder *audit.Recorder,
	totpIssuer string, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		store:      store,
		tokens:     tokens,
		audit:      recorder,
		totpIssuer: totpIssuer,
		logger:     logger,
	}
}

// Enrollment carries what a fresh admin needs to set up their authenticator
// app. It is only ever returned once, right after the first password login.
type Enrollment struct {
	Secret    string `json:"secret"`
	QRDataURL string `json:"qrDataUrl"`
}

type LoginResult struct {
	AdminID    uuid.UUID
	Enrollment *Enrollment
}

// Login checks the password and either issues an enrollment challenge or asks
// for a TOTP code. The response never distinguishes an unknown email from a
// wrong password; both failures are audited with the attempted email.
func (a *Authenticator) Login(ctx context.Context, email, password, ip string) (LoginResult, error) {
	admin, err := a.store.GetAdminByEmail(ctx, email)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		a.audit.Record(ctx, nil, "admin_login_failed", "", "admin", ip,
			map[string]any{"email": email})
		return LoginResult{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		a.audit.Record(ctx, nil, "admin_login_failed", "", "admin", ip,
			map[string]any{"email": email})
		return LoginResult{}, ErrInvalidCredentials
	}

	if admin.Enrolled() {
		return LoginResult{AdminID: admin.ID}, nil
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.totpIssuer,
		AccountName: admin.Email,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("generate totp secret: %w", err)
	}
	if err := a.store.SetAdminOTPSecret(ctx, admin.ID, key.Secret()); err != nil {
		return LoginResult{}, err
	}

	enrollment := &Enrollment{Secret: key.Secret()}
	if png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256); err == nil {
		enrollment.QRDataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	} else {
		a.logger.Warn("enrollment qr not rendered", "admin_id", admin.ID, "error", err)
	}
	return LoginResult{AdminID: admin.ID, Enrollment: enrollment}, nil
}

type Session struct {
	Token string
	Admin model.AdminAccount
}

// VerifyTOTP completes the login. Codes from two 30-second periods either
// side of now are accepted to absorb clock drift.
func (a *Authenticator) VerifyTOTP(ctx context.Context, adminID uuid.UUID, code, ip string) (Session, error) {
	admin, err := a.store.GetAdminByID(ctx, adminID)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !admin.Enrolled() {
		return Session{}, ErrInvalidCredentials
	}

	valid, err := totp.ValidateCustom(code, *admin.OTPSecret, time.Now(), totp.ValidateOpts{
		Period: 30,
		Skew:   2,
		Digits: 6,
	})
	if err != nil || !valid {
		a.audit.Record(ctx, nil, "admin_otp_failed", admin.ID.String(), "admin", ip,
			map[string]any{"email": admin.Email})
		return Session{}, ErrInvalidTOTP
	}

	signed, err := a.tokens.Issue(admin.ID, admin.Role)
	if err != nil {
		return Session{}, err
	}

	now := time.Now()
	if err := a.store.TouchAdminLastLogin(ctx, admin.ID, now); err != nil {
		a.logger.Warn("last login not recorded", "admin_id", admin.ID, "error", err)
	}
	admin.LastLogin = &now

	a.audit.Record(ctx, &admin.ID, "admin_login", admin.ID.String(), "admin", ip, nil)
	return Session{Token: signed, Admin: scrub(admin)}, nil
}

type CreateInput struct {
	Username string
	Email    string
	Password string
	Role     model.Role
}

// Create registers a new admin account with a hashed password.
func (a *Authenticator) Create(ctx context.Context, actorID uuid.UUID, input CreateInput, ip string) (model.AdminAccount, error) {
	if !input.Role.Valid() {
		input.Role = model.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return model.AdminAccount{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	admin := model.AdminAccount{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateAdmin(ctx, admin); err != nil {
		return model.AdminAccount{}, err
	}

	a.audit.Record(ctx, &actorID, "admin_created", admin.ID.String(), "admin", ip,
		map[string]any{"email": admin.Email, "role": admin.Role})
	return scrub(admin), nil
}

// List returns all admin accounts with credentials stripped.
func (a *Authenticator) List(ctx context.Context) ([]model.AdminAccount, error) {
	admins, err := a.store.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	for i := range admins {
		admins[i] = scrub(admins[i])
	}
	return admins, nil
}

// Delete removes an admin account. An admin cannot remove themselves, and the
// last super admin cannot be removed at all.
func (a *Authenticator) Delete(ctx context.Context, actorID uuid.UUID, id uuid.UUID, ip string) error {
	if actorID == id {
		return ErrSelfDeletion
	}

	target, err := a.store.GetAdminByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == model.RoleSuperAdmin {
		count, err := a.store.CountSuperAdmins(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return ErrLastSuperAdmin
		}
	}

	a.audit.Record(ctx, &actorID, "admin_deleted", target.ID.String(), "admin", ip,
		map[string]any{"email": target.Email, "role": target.Role})
	return a.store.DeleteAdmin(ctx, id)
}

// Get returns one account, credentials stripped. Used by the auth middleware
// to confirm a token's subject still exists.
func (a *Authenticator) Get(ctx context.Context, id uuid.UUID) (model.AdminAccount, error) {
	admin, err := a.store.GetAdminByID(ctx, id)
	if err != nil {
		return model.AdminAccount{}, err
	}
	return scrub(admin), nil
}

func scrub(admin model.AdminAccount) model.AdminAccount {
	admin.PasswordHash = ""
	admin.OTPSecret = nil
	return admin
}

var _ Store = (*database.Database)(nil)
