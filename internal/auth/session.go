// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signing keys for session tokens. Set once via Init or InitFromPath before
// serving requests.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TOKEN_EXPIRE_TIME_SEC is how many seconds a token lives (0 => never expires).
	TOKEN_EXPIRE_TIME_SEC int
)

// parseTokenExpireTime reads TOKEN_EXPIRE_TIME and sets TOKEN_EXPIRE_TIME_SEC.
// Accepts any time.ParseDuration string, or "never"/"0"/empty for no expiry.
func parseTokenExpireTime() {
	raw := os.Getenv("TOKEN_EXPIRE_TIME")
	switch raw {
	case "", "0", "never":
		TOKEN_EXPIRE_TIME_SEC = 0
	default:
		d, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Printf("failed to parse TOKEN_EXPIRE_TIME: %v\n", err)
			os.Exit(1)
		}
		TOKEN_EXPIRE_TIME_SEC = int(d.Seconds())
	}
}

// Init generates an ephemeral ed25519 key pair. Tokens do not survive a
// restart with this mode; use InitFromPath for durable sessions.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	parseTokenExpireTime()
}

// InitFromPath loads raw ed25519 keys from disk.
func InitFromPath(privatePath, publicPath string) error {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	privateKey = ed25519.PrivateKey(priv)
	publicKey = ed25519.PublicKey(pub)
	parseTokenExpireTime()
	return nil
}

// CreateJWT issues a signed session token whose subject is the user ID.
func CreateJWT(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token string and returns its subject (the user ID).
func AuthenticateJWT(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return claims.Subject, nil
}
