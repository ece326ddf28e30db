package token

import (
	"testing"
	"time"

	"story-syndication/domain/model"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewEmbedTokenIssuer("embed-secret")
	domain := "partner.example"
	expires := time.Now().Add(time.Hour)
	d := &model.Distribution{ID: "dist-1", StoryID: "story-1", EmbedDomain: &domain, ExpiresAt: &expires}

	raw, err := issuer.Issue(d)
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "dist-1", claims.DistributionID)
	assert.Equal(t, "story-1", claims.StoryID)
	assert.Equal(t, "partner.example", claims.Site)
	assert.Equal(t, expires.Unix(), claims.ExpiresAt)
}

func TestParseExpired(t *testing.T) {
	issuer := NewEmbedTokenIssuer("embed-secret")
	expired := time.Now().Add(-time.Minute)

	raw, err := issuer.Issue(&model.Distribution{ID: "dist-1", StoryID: "story-1", ExpiresAt: &expired})
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	raw, err := NewEmbedTokenIssuer("other").Issue(&model.Distribution{ID: "dist-1", StoryID: "story-1"})
	require.NoError(t, err)

	_, err = NewEmbedTokenIssuer("embed-secret").Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbageAndMissingClaims(t *testing.T) {
	issuer := NewEmbedTokenIssuer("embed-secret")

	_, err := issuer.Parse("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sid": "story-1"}).SignedString([]byte("embed-secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestEmbedCodeEscapes(t *testing.T) {
	code := EmbedCode("https://syndication.example/", "story-1", "tok", `a"b`)
	assert.Contains(t, code, `data-site="a&#34;b"`)
	assert.Contains(t, code, "https://syndication.example/syndication/embed.js")
}
