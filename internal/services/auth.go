package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

// JWTClaims is the payload of an access token.
type JWTClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *types.User, error)
	IssueToken(user *types.User) (string, error)
	VerifyToken(tokenString string) (*ctxutil.Principal, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	st           store.Store
	jwtSecretKey string
	accessTTL    time.Duration
	now          func() time.Time
}

func NewAuthService(baseLog *logger.Logger, st store.Store, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		st:           st,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

// Login checks email and password and returns a signed access token. Unknown
// email and wrong password produce the same error.
func (as *authService) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, apierr.Validation("email and password are required")
	}
	user, err := as.st.Users().FindUnique(ctx, store.Where{"email": email})
	if err != nil {
		return "", nil, apierr.Backend("load user", err)
	}
	if user == nil {
		return "", nil, apierr.Unauthorized("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		as.log.Debug("Password mismatch", "user_id", user.ID)
		return "", nil, apierr.Unauthorized("invalid email or password")
	}
	tok, err := as.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	pub := user.Public()
	return tok, &pub, nil
}

func (as *authService) IssueToken(user *types.User) (string, error) {
	now := as.now()
	claims := JWTClaims{
		Role:  string(user.Role),
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken fails with Unauthorized for a missing, malformed, forged or
// expired token.
func (as *authService) VerifyToken(tokenString string) (*ctxutil.Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, apierr.Unauthorized("missing token")
	}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(as.jwtSecretKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(as.now),
	)
	if err != nil {
		return nil, apierr.Unauthorized("invalid or expired token")
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, apierr.Unauthorized("invalid or expired token")
	}
	role, ok := types.ParseRole(claims.Role)
	if !ok {
		return nil, apierr.Unauthorized("token carries an unknown role")
	}
	return &ctxutil.Principal{
		UserID: claims.Subject,
		Role:   role,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

// EnsureRole fails with Forbidden unless p holds one of roles.
func EnsureRole(p *ctxutil.Principal, roles ...types.Role) error {
	if p == nil {
		return apierr.Unauthorized("authentication required")
	}
	if !slices.Contains(roles, p.Role) {
		return apierr.Forbidden(fmt.Sprintf("role %s is not allowed", p.Role))
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
