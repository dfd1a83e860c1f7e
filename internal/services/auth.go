package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicemenecer/api/internal/config"
	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/internal/token"
	"github.com/invoicemenecer/api/pkg/logger"
	"github.com/invoicemenecer/api/pkg/response"
	"gorm.io/gorm"
)

// errRotationLost signals that a concurrent rotation revoked the record
// between the status check and the conditional update.
var errRotationLost = errors.New("refresh token no longer active")

// AuthService issues, rotates and revokes access/refresh token pairs. Every
// issued refresh token has exactly one lineage record in the store; rotation
// revokes the old record and links it to its successor so any replay of the
// consumed token is rejected.
type AuthService struct {
	db        *gorm.DB
	directory UserDirectory
	store     *RefreshTokenStore
	codec     *token.Codec
	jwtCfg    *config.JWTConfig
}

func NewAuthService(db *gorm.DB, codec *token.Codec, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{
		db:        db,
		directory: NewUserDirectory(db),
		store:     NewRefreshTokenStore(db),
		codec:     codec,
		jwtCfg:    jwtCfg,
	}
}

type RegisterRequest struct {
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type EditProfileRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword    string `json:"current_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required,min=6"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required"`
}

type DeleteAccountRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
}

// AuthResponse is the token pair handed to the caller. It has no identity of
// its own; the persisted state lives in the refresh token record.
type AuthResponse struct {
	AccessToken           string    `json:"access_token"`
	ExpiresAt             time.Time `json:"expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	Email                 string    `json:"email"`
	Roles                 []string  `json:"roles"`
}

// Register creates an account with the default role and issues its first
// token pair.
func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, response.NewValidation("validation failed", map[string]string{
			"confirm_password": "password confirmation does not match",
		})
	}

	existing, err := s.directory.FindByEmail(req.Email)
	if err != nil {
		return nil, response.NewServerError("failed to look up user")
	}
	if existing != nil {
		return nil, response.NewConflict("user with this email already exists")
	}

	user := &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
	if err := s.directory.Create(user, req.Password, models.RoleUser); err != nil {
		return nil, response.NewServerError("failed to create user")
	}

	return s.Issue(user)
}

// Login verifies credentials and issues a token pair. Unknown email and bad
// password produce the same message.
func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	user, err := s.directory.FindByEmail(req.Email)
	if err != nil {
		return nil, response.NewServerError("failed to look up user")
	}
	if user == nil || !s.directory.VerifyCredentials(user, req.Password) {
		return nil, response.NewUnauthorized("invalid email or password")
	}

	return s.Issue(user)
}

// Issue mints a fresh access/refresh pair for the user and persists the
// refresh lineage record.
func (s *AuthService) Issue(user *models.User) (*AuthResponse, error) {
	resp, _, err := s.issueTokens(s.db, user)
	if err != nil {
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, response.NewServerError("failed to issue tokens")
	}
	return resp, nil
}

// issueTokens builds and signs both tokens and inserts the lineage record
// through the given db handle, so rotation can run it inside its own
// transaction. The new tokenID is returned directly; it is never re-derived
// by parsing the freshly minted token.
func (s *AuthService) issueTokens(db *gorm.DB, user *models.User) (*AuthResponse, string, error) {
	roles := user.RoleNames()
	tokenID := uuid.NewString()
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)

	accessToken, accessExpiresAt, err := s.codec.SignAccessToken(
		user.ID, name, user.Email, roles, s.jwtCfg.AccessTokenTTL())
	if err != nil {
		return nil, "", err
	}

	refreshToken, refreshExpiresAt, err := s.codec.SignRefreshToken(
		user.ID, tokenID, s.jwtCfg.RefreshTokenTTL())
	if err != nil {
		return nil, "", err
	}

	// The record's expiry mirrors the signed token's exp claim. The token
	// enforces expiry; the record keeps the audit trail consistent.
	record := &models.RefreshToken{
		TokenID:   tokenID,
		UserID:    user.ID,
		IssuedAt:  time.Now(),
		ExpiresAt: refreshExpiresAt,
	}
	if err := s.store.WithTx(db).Insert(record); err != nil {
		return nil, "", err
	}

	return &AuthResponse{
		AccessToken:           accessToken,
		ExpiresAt:             accessExpiresAt,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: refreshExpiresAt,
		Email:                 user.Email,
		Roles:                 roles,
	}, tokenID, nil
}

// Refresh exchanges a valid refresh token for a new pair, revoking the
// presented token. The new record is inserted and the old one revoked and
// linked inside one transaction: if anything fails, neither write survives,
// so there is never a revoked record without a successor. The revoke is a
// conditional update, so of two concurrent rotations of the same token
// exactly one commits; the other rolls back its insert and is rejected.
func (s *AuthService) Refresh(refreshToken string) (*AuthResponse, error) {
	userID, tokenID, err := s.codec.VerifyRefreshToken(refreshToken, true)
	if err != nil {
		return nil, response.NewUnauthorized("invalid refresh token")
	}

	stored, err := s.store.FindByTokenID(tokenID)
	if err != nil {
		return nil, response.NewServerError("failed to look up refresh token")
	}
	if stored == nil {
		return nil, response.NewUnauthorized("invalid refresh token")
	}

	if !stored.IsActive(time.Now()) {
		if stored.IsRevoked() {
			logger.Warn().
				Str("token_id", tokenID).
				Str("user_id", stored.UserID).
				Msg("revoked refresh token replayed")
		}
		return nil, response.NewUnauthorized("refresh token has been revoked or expired")
	}

	// Resolve the owner from the verified claims, not from the stored row.
	user, err := s.directory.FindByID(userID)
	if err != nil {
		return nil, response.NewServerError("failed to look up user")
	}
	if user == nil {
		return nil, response.NewUnauthorized("user not found")
	}

	var resp *AuthResponse
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		pair, newTokenID, err := s.issueTokens(tx, user)
		if err != nil {
			return err
		}

		ok, err := s.store.WithTx(tx).RevokeAndLink(tokenID, time.Now(), newTokenID)
		if err != nil {
			return err
		}
		if !ok {
			return errRotationLost
		}

		resp = pair
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, errRotationLost) {
			return nil, response.NewUnauthorized("refresh token has been revoked or expired")
		}
		return nil, response.NewServerError("failed to rotate refresh token")
	}

	return resp, nil
}

// Revoke marks the presented refresh token's record revoked. Garbage tokens,
// unknown and already non-active records return silently so the endpoint
// leaks nothing about token validity. Expired tokens can still be revoked.
func (s *AuthService) Revoke(refreshToken string) error {
	_, tokenID, err := s.codec.VerifyRefreshToken(refreshToken, false)
	if err != nil {
		return nil
	}

	stored, err := s.store.FindByTokenID(tokenID)
	if err != nil {
		return response.NewServerError("failed to look up refresh token")
	}
	if stored == nil || !stored.IsActive(time.Now()) {
		return nil
	}

	if _, err := s.store.Revoke(tokenID, time.Now()); err != nil {
		return response.NewServerError("failed to revoke refresh token")
	}
	return nil
}

// GetUser returns the account behind an authenticated request.
func (s *AuthService) GetUser(userID string) (*models.User, error) {
	user, err := s.directory.FindByID(userID)
	if err != nil {
		return nil, response.NewServerError("failed to look up user")
	}
	if user == nil {
		return nil, response.NewNotFound("user not found")
	}
	return user, nil
}

// EditProfile updates the user's name and returns a fresh pair so the new
// name claim takes effect immediately.
func (s *AuthService) EditProfile(userID string, req *EditProfileRequest) (*AuthResponse, error) {
	user, err := s.directory.FindByID(userID)
	if err != nil {
		return nil, response.NewServerError("failed to look up user")
	}
	if user == nil {
		return nil, response.NewUnauthorized("user not found")
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if err := s.directory.Update(user); err != nil {
		return nil, response.NewServerError("failed to update profile")
	}

	return s.Issue(user)
}

// UpdatePassword changes the password after re-verifying the current one.
func (s *AuthService) UpdatePassword(userID string, req *UpdatePasswordRequest) (*AuthResponse, error) {
	if req.NewPassword != req.ConfirmNewPassword {
		return nil, response.NewValidation("validation failed", map[string]string{
			"confirm_new_password": "password confirmation does not match",
		})
	}

	user, err := s.directory.FindByID(userID)
	if err != nil {
		return nil, response.NewServerError("failed to look up user")
	}
	if user == nil {
		return nil, response.NewUnauthorized("user not found")
	}
	if !s.directory.VerifyCredentials(user, req.CurrentPassword) {
		return nil, response.NewUnauthorized("invalid password")
	}

	if err := s.directory.SetPassword(user, req.NewPassword); err != nil {
		return nil, response.NewServerError("failed to update password")
	}

	return s.Issue(user)
}

// DeleteAccount removes the account after re-verifying the password and
// revokes the user's outstanding refresh tokens.
func (s *AuthService) DeleteAccount(userID string, req *DeleteAccountRequest) error {
	user, err := s.directory.FindByID(userID)
	if err != nil {
		return response.NewServerError("failed to look up user")
	}
	if user == nil {
		return response.NewUnauthorized("user not found")
	}
	if !s.directory.VerifyCredentials(user, req.CurrentPassword) {
		return response.NewUnauthorized("invalid password")
	}

	if err := s.store.RevokeAllForUser(userID, time.Now()); err != nil {
		return response.NewServerError("failed to revoke refresh tokens")
	}
	if err := s.directory.Delete(user); err != nil {
		return response.NewServerError("failed to delete account")
	}
	return nil
}

// CreateAdminIfNotExists seeds a default administrator on first start.
func (s *AuthService) CreateAdminIfNotExists() error {
	var count int64
	err := s.db.Model(&models.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", models.RoleAdmin).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := &models.User{
		FirstName: "Default",
		LastName:  "Admin",
		Email:     "admin@invoicemenecer.local",
	}
	if err := s.directory.Create(admin, "admin", models.RoleAdmin); err != nil {
		return err
	}

	logger.Info().Str("email", admin.Email).Msg("created default admin user")
	return nil
}
