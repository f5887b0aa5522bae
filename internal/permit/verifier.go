package permit

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"vaultd/internal/domain"
)

// Claims are the JWT claims a permit carries. The audience is the address of
// the vault the permit is scoped to; the jti feeds the revocation list.
type Claims struct {
	Capabilities []Capability `json:"capabilities"`
	jwt.RegisteredClaims
}

// RevocationList answers whether a permit id has been revoked. Implementations
// live in the revocation subpackage.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// Verifier checks a raw permit against one protocol instance and returns the
// capability grant it carries. Every failure mode surfaces as
// domain.InvalidPermitError; there is no soft pass.
type Verifier interface {
	Verify(ctx context.Context, token string, instance domain.Address) (Grant, error)
}

// JWTVerifier validates HS256 permits and consults a revocation list.
type JWTVerifier struct {
	signingKey  []byte
	issuer      string
	revocations RevocationList
}

// NewJWTVerifier constructs a verifier. The revocation list is required; a
// verifier that cannot check revocation must not verify.
func NewJWTVerifier(signingKey, issuer string, revocations RevocationList) *JWTVerifier {
	return &JWTVerifier{
		signingKey:  []byte(signingKey),
		issuer:      issuer,
		revocations: revocations,
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string, instance domain.Address) (Grant, error) {
	if token == "" {
		return Grant{}, domain.InvalidPermitError{Reason: "permit is required"}
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	},
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(string(instance)),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return Grant{}, domain.InvalidPermitError{Reason: "verification failed"}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Grant{}, domain.InvalidPermitError{Reason: "malformed claims"}
	}

	revoked, err := v.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		// A revocation list we cannot reach is a verification failure, not a
		// pass-through.
		return Grant{}, domain.InvalidPermitError{Reason: "revocation check unavailable"}
	}
	if revoked {
		return Grant{}, domain.InvalidPermitError{Reason: "permit revoked"}
	}

	return Grant{Capabilities: claims.Capabilities}, nil
}

// Issuer mints permits. Outside of tests this would live with whatever party
// users trust to sign capabilities; it shares the verifier's key scheme.
type Issuer struct {
	signingKey []byte
	issuer     string
}

func NewIssuer(signingKey, issuer string) *Issuer {
	return &Issuer{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a permit granting the listed capabilities against one vault.
func (i *Issuer) Issue(instance domain.Address, capabilities []Capability, expiresIn time.Duration) (string, error) {
	for _, c := range capabilities {
		if err := c.Validate(); err != nil {
			return "", fmt.Errorf("invalid capability: %w", err)
		}
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Audience:  []string{string(instance)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign permit: %w", err)
	}
	return signed, nil
}

// PermitID extracts the jti without verifying, for revocation by holders of a
// permit they want withdrawn.
func PermitID(token string) (string, error) {
	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse permit: %w", err)
	}
	return claims.ID, nil
}

// RevocationWindow returns the jti and how long a revocation entry must be
// held: until the permit itself expires, after which the signature check
// rejects it anyway. The claims are not verified; revoking a forged permit is
// harmless.
func RevocationWindow(token string, now time.Time) (string, time.Duration, error) {
	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", 0, domain.InvalidPermitError{Reason: "malformed permit"}
	}
	if claims.ID == "" {
		return "", 0, domain.InvalidPermitError{Reason: "permit has no id"}
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Time.Sub(now); remaining > ttl {
			ttl = remaining
		}
	}
	return claims.ID, ttl, nil
}
