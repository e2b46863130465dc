package medicalrecord

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futurxteam/MedTour-backend/internal/platform/auth"
	"github.com/futurxteam/MedTour-backend/internal/platform/blobstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(assistant, patient *echo.Group) {
	pa := assistant.Group("", auth.RequireRole("assistant"))
	pa.POST("/journeys/:journeyId/records", h.Upload)
	pa.GET("/journeys/:journeyId/records", h.ListByJourney)

	pt := patient.Group("", auth.RequireRole("patient"))
	pt.GET("/my-journey/records", h.ListMine)
}

func (h *Handler) httpError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "validation failed",
			"errors":  ve.Messages,
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrInvalidContentType),
		errors.Is(err, blobstore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func callerID(c echo.Context) (uuid.UUID, error) {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return uid, nil
}

func (h *Handler) Upload(c echo.Context) error {
	journeyID, err := uuid.Parse(c.Param("journeyId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid journey id")
	}
	pa, err := callerID(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	in := UploadInput{
		RecordDate:  c.FormValue("recordDate"),
		Description: c.FormValue("description"),
	}

	rec, err := h.svc.Upload(c.Request().Context(), journeyID, pa, in,
		file.Filename, file.Header.Get("Content-Type"), src)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListByJourney(c echo.Context) error {
	journeyID, err := uuid.Parse(c.Param("journeyId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid journey id")
	}
	pa, err := callerID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByJourney(c.Request().Context(), journeyID, pa)
	if err != nil {
		return h.httpError(err)
	}
	if items == nil {
		items = []*MedicalRecord{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListMine(c echo.Context) error {
	patientID, err := callerID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListForPatient(c.Request().Context(), patientID)
	if err != nil {
		return h.httpError(err)
	}
	if items == nil {
		items = []*MedicalRecord{}
	}
	return c.JSON(http.StatusOK, items)
}
