package taxonomy

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
	static := api.Group("/static")
	static.GET("/domains", h.ListDomains)
	static.GET("/domains/:domain_id/problems", h.ListProblemsByDomain)
	static.GET("/problems/:problem_id/symptoms", h.ListSymptomsByProblem)
	static.GET("/modifier-domains", h.ListModifierDomains)
	static.GET("/modifier-types", h.ListModifierTypes)
	static.GET("/intervention-categories", h.ListInterventionCategories)
	static.GET("/targets", h.ListInterventionTargets)
	static.GET("/phases", h.ListOutcomePhases)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) ListDomains(c echo.Context) error {
	domains, err := h.svc.ListDomains(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, domains)
}

func (h *Handler) ListProblemsByDomain(c echo.Context) error {
	id, err := pathID(c, "domain_id")
	if err != nil {
		return err
	}
	problems, err := h.svc.ListProblemsByDomain(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, problems)
}

func (h *Handler) ListSymptomsByProblem(c echo.Context) error {
	id, err := pathID(c, "problem_id")
	if err != nil {
		return err
	}
	symptoms, err := h.svc.ListSymptomsByProblem(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, symptoms)
}

func (h *Handler) ListModifierDomains(c echo.Context) error {
	items, err := h.svc.ListModifierDomains(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListModifierTypes(c echo.Context) error {
	items, err := h.svc.ListModifierTypes(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListInterventionCategories(c echo.Context) error {
	items, err := h.svc.ListInterventionCategories(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListInterventionTargets(c echo.Context) error {
	items, err := h.svc.ListInterventionTargets(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListOutcomePhases(c echo.Context) error {
	items, err := h.svc.ListOutcomePhases(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
