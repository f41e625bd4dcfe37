package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/michezo/apps/api/echo/helpers"
	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/run"
)

type runApi struct {
	service *run.Service
}

func RegisterRunAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *run.Service) {
	api := runApi{service: svc}

	rg := g.Group("/runs", jwt)
	rg.POST("/start", api.runStart)
	rg.GET("/:id", api.runRetrieve)
}

// Handlers

func (api *runApi) runStart(ctx echo.Context) error {
	data := new(StartRunRequest)
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

	r, err := api.service.Start(ctx.Request().Context(), data.PlanID, actor.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, StartRunResponse{Run: r})
}

func (api *runApi) runRetrieve(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return helpers.ErrInvalidID
	}

	r, err := api.service.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StartRunResponse{Run: r})
}

type (
	StartRunRequest struct {
		PlanID string `json:"plan_id" validate:"required"`
	}

	StartRunResponse struct {
		Run run.Run `json:"run"`
	}
)

func (sr *StartRunRequest) Validate() error {
	sr.PlanID = core.CleanString(sr.PlanID)
	return core.Validate.Struct(sr)
}
