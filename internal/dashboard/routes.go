package dashboard

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"worldstats/internal/state"
)

type Handler struct {
	s *Session
}

func NewHandler(s *Session) *Handler {
	return &Handler{s: s}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/views", h.ListViews)
	e.GET("/views/:name", h.GetView)
	e.GET("/views/:name/png", h.GetViewPNG)
	e.GET("/columns", h.GetColumns)
	e.GET("/state", h.GetState)
	e.PUT("/state/column", h.PutColumn)
	e.POST("/gestures/map/click", h.MapClick)
	e.POST("/gestures/scatter/brush", h.ScatterBrush)
	e.POST("/gestures/pie/click", h.PieClick)
	e.GET("/tooltips/:view", h.GetTooltip)
	e.GET("/events", h.Events)
}

type columnRequest struct {
	Column string `json:"column"`
}

type clickRequest struct {
	Country string `json:"country"`
	Region  string `json:"region"`
}

type brushRequest struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

type tooltipResponse struct {
	View string `json:"view"`
	Key  string `json:"key"`
	HTML string `json:"html"`
}

// viewError maps session errors onto HTTP statuses.
func viewError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownView), errors.Is(err, ErrNoTooltip):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, ErrNotRendered):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	case errors.Is(err, state.ErrInvalidColumn):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return err
}

// returns the view names in drawing order
func (h *Handler) ListViews(c echo.Context) error {
	return c.JSON(http.StatusOK, h.s.Views())
}

// returns the latest SVG of one view
func (h *Handler) GetView(c echo.Context) error {
	body, err := h.s.SVG(c.Param("name"))
	if err != nil {
		return viewError(err)
	}
	return c.Blob(http.StatusOK, "image/svg+xml", body)
}

// returns the latest rendering of one view as PNG
func (h *Handler) GetViewPNG(c echo.Context) error {
	body, err := h.s.PNG(c.Param("name"))
	if err != nil {
		return viewError(err)
	}
	return c.Blob(http.StatusOK, "image/png", body)
}

// returns the selectable indicator columns
func (h *Handler) GetColumns(c echo.Context) error {
	cols, err := h.s.Columns(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cols)
}

// returns the current selection
func (h *Handler) GetState(c echo.Context) error {
	snap, err := h.s.Snapshot(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

// switches the active column and returns the new selection
func (h *Handler) PutColumn(c echo.Context) error {
	var req columnRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Column == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "column is required")
	}
	if err := h.s.SelectColumn(c.Request().Context(), req.Column); err != nil {
		return viewError(err)
	}
	return h.GetState(c)
}

func (h *Handler) MapClick(c echo.Context) error {
	var req clickRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Country == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "country is required")
	}
	if err := h.s.ClickCountry(c.Request().Context(), req.Country); err != nil {
		return err
	}
	return h.GetState(c)
}

func (h *Handler) ScatterBrush(c echo.Context) error {
	var req brushRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := h.s.Brush(c.Request().Context(), req.X0, req.Y0, req.X1, req.Y1); err != nil {
		return err
	}
	return h.GetState(c)
}

func (h *Handler) PieClick(c echo.Context) error {
	var req clickRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Region == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "region is required")
	}
	if err := h.s.ClickRegion(c.Request().Context(), req.Region); err != nil {
		return err
	}
	return h.GetState(c)
}

// describes the item under the pointer: ?key=<country or region>
func (h *Handler) GetTooltip(c echo.Context) error {
	view, key := c.Param("view"), c.QueryParam("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}
	tip, err := h.s.Tooltip(c.Request().Context(), view, key)
	if err != nil {
		return viewError(err)
	}
	return c.JSON(http.StatusOK, tooltipResponse{View: view, Key: key, HTML: tip})
}

// streams the names of re-rendered views
func (h *Handler) Events(c echo.Context) error {
	req := c.Request()
	q := req.URL.Query()
	if q.Get("stream") == "" {
		q.Set("stream", StreamViews)
		req.URL.RawQuery = q.Encode()
	}
	h.s.events.ServeHTTP(c.Response(), req)
	return nil
}
