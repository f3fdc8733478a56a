package careplan

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

// NoteSyncer is the Group Office surface the export path needs.
type NoteSyncer interface {
	Configured() bool
	CreateNote(ctx context.Context, title, content string) (string, error)
	UpdateNote(ctx context.Context, noteID, title, content string) error
}

// NoteRecorder persists the external note id on the patient after the
// first successful sync.
type NoteRecorder interface {
	RecordNoteID(ctx context.Context, patientID int64, noteID string) error
}

type Handler struct {
	composer *Composer
	syncer   NoteSyncer
	recorder NoteRecorder
}

func NewHandler(composer *Composer, syncer NoteSyncer, recorder NoteRecorder) *Handler {
	return &Handler{composer: composer, syncer: syncer, recorder: recorder}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/export", h.Export)
}

const (
	formatText = "text"
	formatJSON = "json"

	destDownload = "download"
	destPreview  = "preview"
	destSync     = "sync"
)

func (h *Handler) Export(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	format := c.QueryParam("format")
	if format == "" {
		format = formatText
	}
	if format != formatText && format != formatJSON {
		return echo.NewHTTPError(http.StatusBadRequest, "format must be text or json")
	}
	dest := c.QueryParam("destination")
	if dest == "" {
		dest = destDownload
	}
	if dest != destDownload && dest != destPreview && dest != destSync {
		return echo.NewHTTPError(http.StatusBadRequest, "destination must be download, preview or sync")
	}

	snap, err := h.composer.Compose(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}

	var body []byte
	var contentType, ext string
	switch format {
	case formatText:
		body = []byte(RenderText(snap))
		contentType = echo.MIMETextPlainCharsetUTF8
		ext = "txt"
	case formatJSON:
		body, err = RenderJSON(snap)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		contentType = echo.MIMEApplicationJSON
		ext = "json"
	}

	switch dest {
	case destPreview:
		return c.Blob(http.StatusOK, contentType, body)
	case destDownload:
		filename := ExportFilename(snap.Patient.Name, snap.GeneratedAt, ext)
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
		return c.Blob(http.StatusOK, contentType, body)
	default:
		return h.sync(c, snap, string(body))
	}
}

func (h *Handler) sync(c echo.Context, snap *Snapshot, body string) error {
	if !h.syncer.Configured() {
		return echo.NewHTTPError(http.StatusBadGateway, "group office sync is not configured")
	}
	ctx := c.Request().Context()
	title := NoteTitle(snap)

	if snap.NoteID == nil {
		noteID, err := h.syncer.CreateNote(ctx, title, body)
		if err != nil {
			return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
		}
		if err := h.recorder.RecordNoteID(ctx, snap.PatientID, noteID); err != nil {
			return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
		}
		return c.JSON(http.StatusCreated, map[string]interface{}{
			"status":       "created",
			"note_id":      noteID,
			"patient_uuid": snap.PublicID,
		})
	}

	if err := h.syncer.UpdateNote(ctx, *snap.NoteID, title, body); err != nil {
		return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "updated",
		"note_id":      *snap.NoteID,
		"patient_uuid": snap.PublicID,
	})
}
