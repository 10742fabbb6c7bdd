package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sandquake/internal/composite"
	"sandquake/internal/coords"
	"sandquake/internal/simerr"
	"sandquake/internal/store"
	"sandquake/internal/tabletop"
	"sandquake/pkg/response"
)

// RunHandler serves the run endpoints.
type RunHandler struct {
	store      *store.Store
	runner     *Runner
	compositor *composite.Compositor
}

// NewRunHandler creates a run handler.
func NewRunHandler(st *store.Store, runner *Runner, comp *composite.Compositor) *RunHandler {
	return &RunHandler{store: st, runner: runner, compositor: comp}
}

func decodeUpload(fh *multipart.FileHeader) (image.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fh.Filename, err)
	}
	return img, nil
}

// CreateRun accepts a table capture and starts a simulation.
// POST /api/v1/runs (multipart: image, optional heightmap)
func (h *RunHandler) CreateRun(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "missing image file")
		return
	}
	img, err := decodeUpload(fh)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var height image.Image
	if hf, err := c.FormFile("heightmap"); err == nil {
		if height, err = decodeUpload(hf); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	hm := tabletop.LuminanceHeightMap(img)
	if height != nil {
		hm = tabletop.LuminanceHeightMap(height)
	}

	run, err := h.runner.Submit(c.Request.Context(), img, hm)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Accepted(c, run)
}

// ListRuns lists runs newest first.
// GET /api/v1/runs?limit=20&offset=0
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		response.BadRequest(c, "Invalid limit")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.BadRequest(c, "Invalid offset")
		return
	}
	runs, err := h.store.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, runs)
}

// GetRun returns one run.
// GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	response.Success(c, run)
}

// DeleteRun removes a run.
// DELETE /api/v1/runs/:id
func (h *RunHandler) DeleteRun(c *gin.Context) {
	if err := h.store.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetFrame renders a stored frame over the run's table image.
// GET /api/v1/runs/:id/frames/:idx?markers=true
func (h *RunHandler) GetFrame(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		response.BadRequest(c, "Invalid frame index")
		return
	}
	run, err := h.store.GetRun(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	if run.Status != store.StatusCompleted {
		response.Conflict(c, fmt.Sprintf("run is %s", run.Status))
		return
	}
	cube, err := h.store.Frame(ctx, id, idx)
	if err != nil {
		h.storeError(c, err)
		return
	}
	data, err := h.store.Image(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	topo, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		response.InternalError(c, "stored image is unreadable")
		return
	}

	out, err := h.compositor.Overlay(topo, cube, 0)
	if err != nil {
		var warn *simerr.ShapeMismatchWarning
		if !errors.As(err, &warn) {
			response.InternalError(c, err.Error())
			return
		}
		c.Header("X-Shape-Mismatch", warn.Policy)
	}
	if marks, _ := strconv.ParseBool(c.Query("markers")); marks {
		b := out.Bounds()
		DrawRunMarkers(out, run, b.Dx(), b.Dy())
	}
	png, err := composite.EncodePNG(out)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	c.Header("X-Frame-Step", strconv.Itoa(cube.Indices[0]))
	c.Data(http.StatusOK, "image/png", png)
}

// DrawRunMarkers draws the run's sources and obstacles, stored in grid
// cells, onto an image of size w by h.
func DrawRunMarkers(img *image.RGBA, run *store.Run, w, h int) {
	scale := func(set []coords.Coordinate) []coords.Coordinate {
		out := make([]coords.Coordinate, len(set))
		for i, c := range set {
			out[i] = coords.Scale(c, run.Width, run.Height, w, h)
		}
		return out
	}
	composite.DrawMarkers(img, scale(run.Sources), scale(run.Obstacles))
}

// GetTrace returns the receiver trace as WAV.
// GET /api/v1/runs/:id/trace
func (h *RunHandler) GetTrace(c *gin.Context) {
	data, err := h.store.Trace(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", data)
}

func (h *RunHandler) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	_ = c.Error(err)
	response.InternalError(c, err.Error())
}
