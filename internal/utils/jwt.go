package utils

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// Claims carried by the session cookie
type Claims struct {
	UserID               uint `json:"user_id"` // Custom claim for user ID
	jwt.RegisteredClaims      // Standard JWT claims, ID holds the session ID
}

// GenerateJWT creates a session token for a given user and session
func GenerateJWT(userID uint, sessionID, secret string, ttl time.Duration) (string, error) {
	now := time.Now() // Single timestamp for issue and expiry
	// Set token claims
	claims := Claims{
		UserID: userID, // Custom claim for user ID
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,                        // Session the token belongs to
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expires with the session
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	return SignToken(claims, secret) // Sign the token with the secret
}

// ParseJWT parses and validates a session token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{} // Destination for the claims
	// Validate signature and expiry
	if err := ParseToken(tokenStr, claims, secret); err != nil {
		return nil, err // Return error if parsing fails
	}
	return claims, nil // Return claims if valid
}

// SignToken signs arbitrary claims with HS256
func SignToken(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseToken validates an HS256 token and decodes it into claims
func ParseToken(tokenStr string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Check for parsing errors
	if err != nil {
		return err // Return error if parsing fails
	}
	// Reject tokens that parsed but did not validate
	if !token.Valid {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
