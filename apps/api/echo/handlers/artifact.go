package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/michezo/apps/api/echo/helpers"
	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/artifact"
)

type artifactApi struct {
	service *artifact.Service
}

func RegisterArtifactAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *artifact.Service) {
	api := artifactApi{service: svc}

	ag := g.Group("/sessions/:sessionId/artifacts/:artifactId", jwt)
	ag.POST("/keypad", api.keypadAttempt)
	ag.GET("/keypad", api.keypadRetrieve)
}

// Handlers

func (api *artifactApi) keypadAttempt(ctx echo.Context) error {
	sessionID, artifactID, err := pathIDs(ctx)
	if err != nil {
		return err
	}

	data := new(KeypadAttemptRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := helpers.GetContextParticipant(ctx)
	if err != nil {
		return err
	}

	res, err := api.service.Attempt(ctx.Request().Context(), sessionID, artifactID, data.EnteredCode, actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *artifactApi) keypadRetrieve(ctx echo.Context) error {
	sessionID, artifactID, err := pathIDs(ctx)
	if err != nil {
		return err
	}

	view, err := api.service.KeypadState(ctx.Request().Context(), sessionID, artifactID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

func pathIDs(ctx echo.Context) (sessionID, artifactID string, err error) {
	sessionID = ctx.Param("sessionId")
	artifactID = ctx.Param("artifactId")
	if sessionID == "" || artifactID == "" {
		return "", "", helpers.ErrInvalidID
	}
	return sessionID, artifactID, nil
}

type KeypadAttemptRequest struct {
	EnteredCode string `json:"entered_code" validate:"required,numcode"`
}

func (kr *KeypadAttemptRequest) Validate() error {
	kr.EnteredCode = core.CleanString(kr.EnteredCode)
	return core.Validate.Struct(kr)
}
