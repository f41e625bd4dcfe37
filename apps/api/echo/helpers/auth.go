package helpers

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/session"
)

var (
	// AppJWTConfig is the default JWT auth middleware config.
	AppJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "participantToken",
		Claims:        new(Claims),
	}
	contextParticipantKey = "participant"
)

// Claims represents the authorization claims transmitted via a JWT. The
// authentication layer lives elsewhere; the runtime only needs the opaque
// participant identity and display name it yields.
type Claims struct {
	jwt.StandardClaims
	DisplayName string `json:"display_name,omitempty"`
	IsHost      bool   `json:"is_host,omitempty"`
}

func GetParticipantClaims(p session.Participant, isHost ...bool) *Claims {
	now := time.Now()

	var host bool
	if len(isHost) > 0 {
		host = isHost[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   p.ID,
			Audience:  "Play",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		DisplayName: p.DisplayName,
		IsHost:      host,
	}
}

// GenerateToken generates a signed JWT token string representing the participant Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(AppJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(AppJWTConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(AppJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, ErrUnauthorized
}

func GetContextParticipant(ctx echo.Context) (session.Participant, error) {
	if p, ok := ctx.Get(contextParticipantKey).(session.Participant); ok {
		return p, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return session.Participant{}, errors.Wrap(err, "getting context claims")
	}

	p := session.Participant{ID: claims.Subject, DisplayName: claims.DisplayName}
	ctx.Set(contextParticipantKey, p)
	return p, nil
}
