package auth

import (
	"errors"
	"strconv"
	"time"

	"farmfi-backend/internal/config"
	"farmfi-backend/internal/models"
	"farmfi-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries {id, role} plus the login name under the key the role uses
// (phone for farmers, username for staff).
type Claims struct {
	ID       int    `json:"id"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() models.Identity {
	login := c.Username
	if c.Role == models.RoleFarmer {
		login = c.Phone
	}
	return models.Identity{ID: c.ID, Role: c.Role, Login: login}
}

type JWTManager struct {
	cfg *config.Config
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{cfg: cfg}
}

// GenerateToken creates a new JWT token for a principal
func (j *JWTManager) GenerateToken(p models.Principal) (string, error) {
	now := timeutil.Now()
	ttl := j.cfg.TokenTTL()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	id := models.IdentityOf(p)
	claims := &Claims{
		ID:   id.ID,
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Role + ":" + strconv.Itoa(id.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.cfg.JWT.Issuer,
		},
	}
	if id.IsFarmer() {
		claims.Phone = id.Login
	} else {
		claims.Username = id.Login
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.JWT.Secret))
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(j.cfg.JWT.Secret), nil
	}, jwt.WithIssuer(j.cfg.JWT.Issuer))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if !models.ValidRole(claims.Role) || claims.ID <= 0 {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
