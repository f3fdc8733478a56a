package problem

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	problems := api.Group("/patients/:id/problems")
	problems.GET("", h.ListActive)
	problems.POST("", h.Create)
	problems.GET("/history", h.ListHistory)
	problems.GET("/:problem_id", h.Get)
	problems.PUT("/:problem_id", h.Update)
	problems.DELETE("/:problem_id", h.Delete)

	problems.GET("/:problem_id/symptoms", h.ListSymptoms)
	problems.POST("/:problem_id/symptoms", h.AddSymptom)

	problems.GET("/:problem_id/scores", h.ListScores)
	problems.GET("/:problem_id/scores/latest", h.LatestScore)
	problems.POST("/:problem_id/scores", h.RecordScore)

	problems.GET("/:problem_id/interventions", h.ListInterventions)
	problems.POST("/:problem_id/interventions", h.RecordIntervention)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func ids(c echo.Context) (patientID, problemID int64, err error) {
	if patientID, err = pathID(c, "id"); err != nil {
		return 0, 0, err
	}
	if problemID, err = pathID(c, "problem_id"); err != nil {
		return 0, 0, err
	}
	return patientID, problemID, nil
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Create(c.Request().Context(), patientID, &in)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListActive(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListActive(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListHistory(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListHistory(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), patientID, problemID)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Update(c.Request().Context(), patientID, problemID, &in)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), patientID, problemID); err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddSymptom(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	var in SymptomInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	row, err := h.svc.AddSymptom(c.Request().Context(), patientID, problemID, &in)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, row)
}

func (h *Handler) ListSymptoms(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListSymptoms(c.Request().Context(), patientID, problemID)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RecordScore(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	var in ScoreInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	score, err := h.svc.RecordScore(c.Request().Context(), patientID, problemID, &in)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, score)
}

func (h *Handler) ListScores(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListScores(c.Request().Context(), patientID, problemID)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) LatestScore(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	score, err := h.svc.LatestScore(c.Request().Context(), patientID, problemID)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, score)
}

func (h *Handler) RecordIntervention(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	var in InterventionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	iv, err := h.svc.RecordIntervention(c.Request().Context(), patientID, problemID, &in)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, iv)
}

func (h *Handler) ListInterventions(c echo.Context) error {
	patientID, problemID, err := ids(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListInterventions(c.Request().Context(), patientID, problemID)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
