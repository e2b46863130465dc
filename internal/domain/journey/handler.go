package journey

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futurxteam/MedTour-backend/internal/platform/auth"
	"github.com/futurxteam/MedTour-backend/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the assistant-facing journey management surface and
// the single patient-facing read.
func (h *Handler) RegisterRoutes(assistant, patient *echo.Group) {
	pa := assistant.Group("", auth.RequireRole("assistant"))
	pa.POST("/enquiries/:enquiryId/start-service", h.StartService)
	pa.GET("/journeys", h.ListJourneys)
	pa.GET("/journeys/:journeyId", h.GetJourney)
	pa.POST("/journeys/:journeyId/stages", h.AddStage)
	pa.PUT("/journeys/:journeyId/stages/:stageId", h.UpdateStage)
	pa.DELETE("/journeys/:journeyId/stages/:stageId", h.DeleteStage)
	pa.PATCH("/journeys/:journeyId/reorder", h.ReorderStages)
	pa.PATCH("/journeys/:journeyId/status", h.UpdateStatus)

	pt := patient.Group("", auth.RequireRole("patient"))
	pt.GET("/my-journey", h.GetMyJourney)
}

// httpError translates domain errors into HTTP responses.
func httpError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "validation failed",
			"errors":  ve.Messages,
		})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrStageNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrConcurrentUpdate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) StartService(c echo.Context) error {
	enquiryID, err := uuid.Parse(c.Param("enquiryId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid enquiry id")
	}
	pa, err := callerID(c)
	if err != nil {
		return err
	}
	result, err := h.svc.StartService(c.Request().Context(), enquiryID, pa)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListJourneys(c echo.Context) error {
	pa, err := callerID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListJourneys(c.Request().Context(), pa, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Journey{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetJourney(c echo.Context) error {
	journeyID, pa, err := h.identify(c)
	if err != nil {
		return err
	}
	j, err := h.svc.GetJourney(c.Request().Context(), journeyID, pa)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, j)
}

func (h *Handler) AddStage(c echo.Context) error {
	journeyID, pa, err := h.identify(c)
	if err != nil {
		return err
	}
	var in StageInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	j, err := h.svc.AddStage(c.Request().Context(), journeyID, pa, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, j)
}

func (h *Handler) UpdateStage(c echo.Context) error {
	journeyID, pa, err := h.identify(c)
	if err != nil {
		return err
	}
	var in StageInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	j, err := h.svc.UpdateStage(c.Request().Context(), journeyID, c.Param("stageId"), pa, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, j)
}

func (h *Handler) DeleteStage(c echo.Context) error {
	journeyID, pa, err := h.identify(c)
	if err != nil {
		return err
	}
	j, err := h.svc.DeleteStage(c.Request().Context(), journeyID, c.Param("stageId"), pa)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, j)
}

func (h *Handler) ReorderStages(c echo.Context) error {
	journeyID, pa, err := h.identify(c)
	if err != nil {
		return err
	}
	var body struct {
		StageOrder []string `json:"stageOrder"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	j, err := h.svc.ReorderStages(c.Request().Context(), journeyID, pa, body.StageOrder)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, j)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	journeyID, pa, err := h.identify(c)
	if err != nil {
		return err
	}
	var upd StatusUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	j, err := h.svc.UpdateStatus(c.Request().Context(), journeyID, pa, upd)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, j)
}

func (h *Handler) GetMyJourney(c echo.Context) error {
	patientID, err := callerID(c)
	if err != nil {
		return err
	}
	j, err := h.svc.GetPatientJourney(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, j)
}

// callerID resolves the authenticated user id from the request context.
func callerID(c echo.Context) (uuid.UUID, error) {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return uid, nil
}

// identify parses the journey id path param and resolves the caller.
func (h *Handler) identify(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	journeyID, err := uuid.Parse(c.Param("journeyId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid journey id")
	}
	pa, err := callerID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return journeyID, pa, nil
}
