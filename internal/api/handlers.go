package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"go.uber.org/multierr"

	"relab/internal/models"
	"relab/internal/spectra"
	"relab/pkg/relab"
)

// Handler serves a Store. Until SetStore is called every route answers 503.
type Handler struct {
	store atomic.Pointer[relab.Store]
	// retrieval rewrites the list file and extracts spectra; one at a time
	mu sync.Mutex
}

func NewHandler(store *relab.Store) *Handler {
	h := &Handler{}
	if store != nil {
		h.store.Store(store)
	}
	return h
}

// SetStore makes the handler live.
func (h *Handler) SetStore(store *relab.Store) {
	h.store.Store(store)
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/catalogue", h.GetCatalogue)
	api.GET("/query", h.Query)
	api.GET("/samples/:id", h.Locate)
	api.GET("/spectra", h.GetSpectrum)
	api.GET("/spectra/plot", h.PlotSpectrum)
}

// --- HANDLERS ---

func (h *Handler) ready() (*relab.Store, error) {
	s := h.store.Load()
	if s == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "catalogue loading")
	}
	return s, nil
}

func (h *Handler) GetCatalogue(c echo.Context) error {
	s, err := h.ready()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.NewCatalogue(s.Table(), s.Fingerprint()))
}

// Query: /api/query?field=GeneralType1&value=Synthetic[&extract=true]
func (h *Handler) Query(c echo.Context) error {
	s, err := h.ready()
	if err != nil {
		return err
	}
	field := c.QueryParam("field")
	if field == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "field is required")
	}

	h.mu.Lock()
	sel, refs, err := s.Query(field, c.QueryParam("value"), extractParam(c))
	h.mu.Unlock()
	return h.selection(c, sel, refs, err)
}

func (h *Handler) Locate(c echo.Context) error {
	s, err := h.ready()
	if err != nil {
		return err
	}

	h.mu.Lock()
	sel, refs, err := s.Locate(c.Param("id"), extractParam(c))
	h.mu.Unlock()
	return h.selection(c, sel, refs, err)
}

// selection renders a query result. Per-spectrum failures are reported in
// the body; only a failed selection is an HTTP error.
func (h *Handler) selection(c echo.Context, sel relab.Selection, refs []relab.Ref, err error) error {
	if sel.Table == nil && err != nil {
		return httpError(err)
	}
	out := models.SelectionResult{
		Total:   sel.Len(),
		Rows:    models.NewRows(sel),
		Spectra: refs,
	}
	if out.Spectra == nil {
		out.Spectra = []spectra.Ref{}
	}
	for _, e := range multierr.Errors(err) {
		out.Errors = append(out.Errors, e.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetSpectrum(c echo.Context) error {
	s, err := h.ready()
	if err != nil {
		return err
	}
	sp, err := s.Spectrum(c.QueryParam("path"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, models.NewSpectrumData(sp))
}

func (h *Handler) PlotSpectrum(c echo.Context) error {
	s, err := h.ready()
	if err != nil {
		return err
	}
	sp, err := s.Spectrum(c.QueryParam("path"))
	if err != nil {
		return httpError(err)
	}
	var buf bytes.Buffer
	if err := spectra.Render(sp, &buf, "png"); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func extractParam(c echo.Context) bool {
	v, err := strconv.ParseBool(c.QueryParam("extract"))
	return err == nil && v
}

func httpError(err error) error {
	switch {
	case errors.Is(err, relab.ErrNotFound), errors.Is(err, relab.ErrKey):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, relab.ErrParse):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}
