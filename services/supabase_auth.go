package services

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cache TTL for JWKS keys (Supabase edge caches for 10 min)
const jwksCacheTTL = 10 * time.Minute

var (
	ErrMissingAuthHeader = errors.New("authorization header is required")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
)

// SupabaseAuthService validates access tokens issued by Supabase Auth.
type SupabaseAuthService struct {
	SupabaseURL string
	JWTSecret   string // HS256 projects only
	HTTPClient  *http.Client

	keysMutex    sync.RWMutex
	keys         map[string]crypto.PublicKey
	lastKeyFetch time.Time
}

// SupabaseClaims is the subset of the Supabase access token the core reads.
type SupabaseClaims struct {
	Email    string                 `json:"email"`
	Role     string                 `json:"role"`
	UserMeta map[string]interface{} `json:"user_metadata"`
	AppMeta  map[string]interface{} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// UserID is the token subject.
func (c *SupabaseClaims) UserID() string { return c.Subject }

type JWKSResponse struct {
	Keys []JWKKey `json:"keys"`
}

type JWKKey struct {
	Kty string `json:"kty"` // "RSA" or "EC"
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`
	// EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

func NewSupabaseAuthService(supabaseURL, jwtSecret string) *SupabaseAuthService {
	return &SupabaseAuthService{
		SupabaseURL: strings.TrimRight(supabaseURL, "/"),
		JWTSecret:   jwtSecret,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		keys:        make(map[string]crypto.PublicKey),
	}
}

// ValidateSupabaseToken verifies the signature and expiry of a token and
// returns its claims. HS256 tokens are checked against the project secret,
// ES256 and RS256 tokens against the project JWKS.
func (s *SupabaseAuthService) ValidateSupabaseToken(ctx context.Context, tokenString string) (*SupabaseClaims, error) {
	claims := &SupabaseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.keyFor(ctx, token)
	},
		jwt.WithValidMethods([]string{"HS256", "ES256", "RS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (s *SupabaseAuthService) keyFor(ctx context.Context, token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if s.JWTSecret == "" {
			return nil, errors.New("HS256 token but no JWT secret configured")
		}
		return []byte(s.JWTSecret), nil
	case *jwt.SigningMethodECDSA, *jwt.SigningMethodRSA:
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no key id")
		}
		return s.publicKey(ctx, kid)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

// publicKey returns the JWKS key for kid, refetching the set when the cache
// is stale or the key is unknown. A stale cached key is still used when the
// refetch fails.
func (s *SupabaseAuthService) publicKey(ctx context.Context, kid string) (crypto.PublicKey, error) {
	s.keysMutex.RLock()
	key, exists := s.keys[kid]
	cacheValid := time.Since(s.lastKeyFetch) < jwksCacheTTL
	s.keysMutex.RUnlock()

	if exists && cacheValid {
		return key, nil
	}

	jwks, err := s.fetchJWKS(ctx)
	if err != nil {
		if exists {
			return key, nil
		}
		return nil, err
	}

	fresh := make(map[string]crypto.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		pub, err := parseJWK(k)
		if err != nil {
			continue
		}
		fresh[k.Kid] = pub
	}

	s.keysMutex.Lock()
	s.keys = fresh
	s.lastKeyFetch = time.Now()
	s.keysMutex.Unlock()

	if key, ok := fresh[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("public key not found for key ID: %s", kid)
}

func (s *SupabaseAuthService) fetchJWKS(ctx context.Context) (*JWKSResponse, error) {
	jwksURL := fmt.Sprintf("%s/auth/v1/.well-known/jwks.json", s.SupabaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status: %d", resp.StatusCode)
	}

	var jwks JWKSResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return &jwks, nil
}

func parseJWK(k JWKKey) (crypto.PublicKey, error) {
	switch k.Kty {
	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported curve: %s", k.Crv)
		}
		x, err := base64.RawURLEncoding.DecodeString(k.X)
		if err != nil {
			return nil, fmt.Errorf("failed to decode X coordinate: %w", err)
		}
		y, err := base64.RawURLEncoding.DecodeString(k.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to decode Y coordinate: %w", err)
		}
		return &ecdsa.PublicKey{Curve: curve, X: new(big.Int).SetBytes(x), Y: new(big.Int).SetBytes(y)}, nil

	case "RSA":
		n, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("failed to decode modulus: %w", err)
		}
		e, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("failed to decode exponent: %w", err)
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
	}
	return nil, fmt.Errorf("unsupported key type: %s", k.Kty)
}

// ExtractTokenFromHeader extracts the bearer token from an Authorization header.
func (s *SupabaseAuthService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidAuthHeader
	}
	return parts[1], nil
}
