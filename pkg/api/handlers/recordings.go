package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/ipcom/pkg/api/types"
	"github.com/urmzd/ipcom/pkg/db"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// RecordingsHandler serves recorded sessions
type RecordingsHandler struct {
	store db.RecordingStore
}

// NewRecordingsHandler creates a new recordings handler
func NewRecordingsHandler(store db.RecordingStore) *RecordingsHandler {
	return &RecordingsHandler{store: store}
}

// List handles GET /recordings
// @Summary      List recordings
// @Description  Returns recorded sessions, newest first
// @Tags         recordings
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of recordings"
// @Success      200    {object}  types.ListRecordingsResponse
// @Router       /recordings [get]
func (h *RecordingsHandler) List(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	recs, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ListRecordingsResponse{Recordings: recs, Count: len(recs)})
}

// Get handles GET /recordings/:id
// @Summary      Get recording
// @Tags         recordings
// @Produce      json
// @Param        id   path      string  true  "Recording ID"
// @Success      200  {object}  db.Recording
// @Failure      404  {object}  types.ErrorResponse
// @Router       /recordings/{id} [get]
func (h *RecordingsHandler) Get(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Frames handles GET /recordings/:id/frames
// @Summary      List recorded frames
// @Description  Returns wire frames of a recording in order. Pass the previous response's next value as after to page.
// @Tags         recordings
// @Produce      json
// @Param        id     path      string  true   "Recording ID"
// @Param        after  query     int     false  "Return frames after this ID"
// @Param        limit  query     int     false  "Page size"
// @Success      200    {object}  types.FramesResponse
// @Failure      404    {object}  types.ErrorResponse
// @Router       /recordings/{id}/frames [get]
func (h *RecordingsHandler) Frames(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	var after int64
	if s := c.Query("after"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			badRequest(c, "invalid_after", "after must be a non-negative integer")
			return
		}
		after = v
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.store.Get(ctx, id); err != nil {
		h.storeError(c, err)
		return
	}
	frames, err := h.store.Frames(ctx, id, after, limit)
	if err != nil {
		h.storeError(c, err)
		return
	}

	resp := types.FramesResponse{Frames: frames, Count: len(frames)}
	if len(frames) == limit {
		resp.Next = frames[len(frames)-1].ID
	}
	c.JSON(http.StatusOK, resp)
}

// Snapshots handles GET /recordings/:id/snapshots
// @Summary      List recorded snapshots
// @Tags         recordings
// @Produce      json
// @Param        id     path      string  true   "Recording ID"
// @Param        limit  query     int     false  "Maximum number of snapshots"
// @Success      200    {object}  types.SnapshotsResponse
// @Failure      404    {object}  types.ErrorResponse
// @Router       /recordings/{id}/snapshots [get]
func (h *RecordingsHandler) Snapshots(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.store.Get(ctx, id); err != nil {
		h.storeError(c, err)
		return
	}
	snaps, err := h.store.Snapshots(ctx, id, limit)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SnapshotsResponse{Snapshots: snaps, Count: len(snaps)})
}

// States handles GET /recordings/:id/states
// @Summary      List recorded session state changes
// @Tags         recordings
// @Produce      json
// @Param        id   path      string  true  "Recording ID"
// @Success      200  {object}  types.StatesResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /recordings/{id}/states [get]
func (h *RecordingsHandler) States(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.store.Get(ctx, id); err != nil {
		h.storeError(c, err)
		return
	}
	states, err := h.store.States(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.StatesResponse{States: states, Count: len(states)})
}

// Delete handles DELETE /recordings/:id
// @Summary      Delete recording
// @Tags         recordings
// @Param        id   path  string  true  "Recording ID"
// @Success      204
// @Failure      404  {object}  types.ErrorResponse
// @Router       /recordings/{id} [delete]
func (h *RecordingsHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecordingsHandler) storeError(c *gin.Context, err error) {
	if errors.Is(err, db.ErrRecordingNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "not_found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "storage_error", Message: err.Error()})
}

func queryLimit(c *gin.Context) (int, bool) {
	s := c.Query("limit")
	if s == "" {
		return defaultPageSize, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		badRequest(c, "invalid_limit", "limit must be a positive integer")
		return 0, false
	}
	if n > maxPageSize {
		n = maxPageSize
	}
	return n, true
}
