package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// JWTClaims defines the payload for the JWT.
type JWTClaims struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	Location      string `json:"location"`
	WarehouseCode string `json:"warehouseCode"`
	jwt.RegisteredClaims
}

// Hashing
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// JwtSecret is set once at startup from config.
var JwtSecret []byte

var tokenLifetime = 24 * time.Hour

// Init configures the signing secret and token lifetime.
func Init(secret string, expiration string) {
	JwtSecret = []byte(secret)
	if d, err := time.ParseDuration(expiration); err == nil && d > 0 {
		tokenLifetime = d
	}
}

func GenerateJWT(email, role, location, warehouseCode string) (string, error) {
	expirationTime := time.Now().Add(tokenLifetime)
	claims := &JWTClaims{
		Email:         email,
		Role:          role,
		Location:      location,
		WarehouseCode: warehouseCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JwtSecret)
}
