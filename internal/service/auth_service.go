package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"plate_reader/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid username or password")
var ErrTokenInvalid = errors.New("token is invalid or expired")

type AuthService struct {
	operators          map[string]domain.Operator
	jwtSecret          string
	jwtExpirationHours time.Duration
	now                func() time.Time
}

func NewAuthService(operators []domain.Operator, jwtSecret string, jwtExpHours time.Duration) *AuthService {
	byName := make(map[string]domain.Operator, len(operators))
	for _, op := range operators {
		if op.Username == "" || op.PasswordHash == "" {
			log.Printf("AuthService: operator %q has no password hash, login disabled for it", op.Username)
			continue
		}
		byName[strings.ToLower(op.Username)] = op
	}
	return &AuthService{
		operators:          byName,
		jwtSecret:          jwtSecret,
		jwtExpirationHours: jwtExpHours,
		now:                time.Now,
	}
}

// HashPassword is used to produce OPERATOR_PASSWORD_HASH values.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *AuthService) Login(dto domain.LoginUserDTO) (*domain.AuthResponseDTO, error) {
	op, ok := s.operators[strings.ToLower(dto.Username)]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expirationTime := now.Add(s.jwtExpirationHours)
	claims := jwt.MapClaims{
		"sub":      op.Username,
		"exp":      expirationTime.Unix(),
		"iat":      now.Unix(),
		"role":     op.Role,
		"username": op.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	log.Printf("AuthService: operator %q logged in", op.Username)
	return &domain.AuthResponseDTO{
		Token:     tokenString,
		Username:  op.Username,
		Role:      op.Role,
		ExpiresAt: expirationTime.Unix(),
	}, nil
}

// ValidateToken is used by the auth middleware and the WebSocket upgrade.
func (s *AuthService) ValidateToken(tokenString string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, nil, fmt.Errorf("%w: malformed token", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, fmt.Errorf("%w: token expired", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, nil, fmt.Errorf("%w: token not valid yet", ErrTokenInvalid)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, nil, ErrTokenInvalid
	}
	return token, claims, nil
}
