package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskify/internal/models"
	"taskify/internal/utils"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike, so login failures do not reveal which accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenVerifier is the server half of the auth gate: it turns a bearer
// credential into a stable subject identifier or fails.
type TokenVerifier interface {
	Verify(tokenString string) (subject string, err error)
}

type hmacVerifier struct {
	secret string
}

// NewTokenVerifier returns a TokenVerifier that checks HS256 signature and
// expiry against the shared secret.
func NewTokenVerifier(secret string) TokenVerifier {
	return &hmacVerifier{secret: secret}
}

func (v *hmacVerifier) Verify(tokenString string) (string, error) {
	claims, err := utils.ParseJWT(tokenString, v.secret)
	if err != nil {
		return "", err
	}
	subject, ok := claims["user_id"].(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("missing user_id in token")
	}
	return subject, nil
}

// TokenPair is an access token plus the rotating refresh token that can
// replace it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type AuthService interface {
	LoginUser(db *gorm.DB, email, password string) (*models.User, error)
	GenerateTokens(db *gorm.DB, userID uuid.UUID) (TokenPair, error)
	RefreshTokens(db *gorm.DB, refreshToken string) (TokenPair, error)
	RevokeToken(db *gorm.DB, refreshToken string) error
}

type AuthServiceImpl struct {
	secret     string
	tokenTTL   time.Duration
	refreshTTL time.Duration
}

func NewAuthService(secret string, tokenTTL, refreshTTL time.Duration) *AuthServiceImpl {
	return &AuthServiceImpl{
		secret:     secret,
		tokenTTL:   tokenTTL,
		refreshTTL: refreshTTL,
	}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func (s *AuthServiceImpl) LoginUser(db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AuthServiceImpl) GenerateTokens(db *gorm.DB, userID uuid.UUID) (TokenPair, error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"user_id": userID.String(),
		"iat":     now.Unix(),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iss":     "taskify-api",
		"aud":     "taskify-clients",
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.secret))
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	jti, err := uuid.NewV4()
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate jti: %w", err)
	}

	refreshExpiry := now.Add(s.refreshTTL)
	refreshClaims := jwt.MapClaims{
		"user_id": userID.String(),
		"type":    "refresh",
		"jti":     jti.String(),
		"iat":     now.Unix(),
		"exp":     refreshExpiry.Unix(),
		"iss":     "taskify-api",
		"aud":     "taskify-clients",
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.secret))
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	record := models.Token{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		JTI:          jti,
		RefreshToken: refreshToken,
		ExpiresAt:    refreshExpiry,
	}
	if err := db.Create(&record).Error; err != nil {
		return TokenPair{}, fmt.Errorf("failed to create token record: %w", err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenTTL.Seconds()),
	}, nil
}

func (s *AuthServiceImpl) RefreshTokens(db *gorm.DB, refreshToken string) (TokenPair, error) {
	jti, userID, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	var record models.Token
	err = db.Where("jti = ? AND user_id = ? AND expires_at > ?", jti, userID, time.Now()).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, fmt.Errorf("refresh token not found or expired")
		}
		return TokenPair{}, fmt.Errorf("database error: %w", err)
	}

	pair, err := s.GenerateTokens(db, userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate new tokens: %w", err)
	}

	// Rotation: the old refresh token is single-use.
	if err := db.Delete(&record).Error; err != nil {
		return TokenPair{}, fmt.Errorf("failed to delete old token: %w", err)
	}

	return pair, nil
}

func (s *AuthServiceImpl) RevokeToken(db *gorm.DB, refreshToken string) error {
	jti, _, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	return db.Where("jti = ?", jti).Delete(&models.Token{}).Error
}

func (s *AuthServiceImpl) parseRefreshToken(refreshToken string) (uuid.UUID, uuid.UUID, error) {
	claims, err := utils.ParseJWT(refreshToken, s.secret)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "refresh" {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid token type")
	}

	jtiStr, ok := claims["jti"].(string)
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("missing jti in token")
	}
	jti, err := uuid.FromString(jtiStr)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid jti format: %w", err)
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("missing user_id in token")
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid user_id format: %w", err)
	}

	return jti, userID, nil
}
