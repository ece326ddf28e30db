// Package token issues and verifies embed tokens for the public content boundary.
package token

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"story-syndication/domain/model"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken = errors.New("invalid embed token")
	ErrTokenExpired = errors.New("embed token expired")
)

// EmbedClaims bind a token to exactly one distribution.
type EmbedClaims struct {
	DistributionID string `json:"did"`
	StoryID        string `json:"sid"`
	Site           string `json:"site,omitempty"`
	jwt.StandardClaims
}

type EmbedTokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewEmbedTokenIssuer(secret string) *EmbedTokenIssuer {
	return &EmbedTokenIssuer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for d. The token expiry mirrors the distribution's expires_at.
func (i *EmbedTokenIssuer) Issue(d *model.Distribution) (string, error) {
	claims := EmbedClaims{
		DistributionID: d.ID,
		StoryID:        d.StoryID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: i.now().Unix(),
			Subject:  d.ID,
		},
	}
	if d.EmbedDomain != nil {
		claims.Site = *d.EmbedDomain
	}
	if d.ExpiresAt != nil {
		claims.ExpiresAt = d.ExpiresAt.Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies signature and expiry. It returns ErrTokenExpired for a well
// formed token past its exp and ErrInvalidToken for everything else.
func (i *EmbedTokenIssuer) Parse(raw string) (*EmbedClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &EmbedClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors == jwt.ValidationErrorExpired {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid || claims.DistributionID == "" || claims.StoryID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// EmbedCode renders the snippet an embedder pastes into their page.
func EmbedCode(baseURL, storyID, embedToken, site string) string {
	base := strings.TrimRight(baseURL, "/")
	return fmt.Sprintf(`<div class="story-syndication-embed" data-story-id="%s" data-token="%s" data-site="%s"></div>
<script src="%s/syndication/embed.js" async></script>`,
		html.EscapeString(storyID), html.EscapeString(embedToken), html.EscapeString(site), html.EscapeString(base))
}
