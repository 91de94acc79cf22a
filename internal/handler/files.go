package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/export"
	"github.com/AhmedTUD/invoice/internal/storage"
	"github.com/AhmedTUD/invoice/internal/utils"
)

const thumbMaxSide = 320

// FileHandler serves stored invoice files.
type FileHandler struct {
	Store storage.Store
	Links *utils.FileLinkSigner
}

func NewFileHandler(s storage.Store, links *utils.FileLinkSigner) *FileHandler {
	return &FileHandler{Store: s, Links: links}
}

// Image returns the file as a data URL.
func (h *FileHandler) Image(c echo.Context) error {
	name := c.Param("filename")
	if err := storage.CheckName(name); err != nil {
		return fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	data, err := storage.ReadAll(ctx, h.Store, name)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"data": export.EncodeDataURL(export.MimeByName(name), data)})
}

// File streams the raw file for a valid signed link. With thumb=1 it
// returns a JPEG no larger than 320px on either side.
func (h *FileHandler) File(c echo.Context) error {
	name := c.Param("filename")
	if err := storage.CheckName(name); err != nil {
		return fail(c, err)
	}
	if err := h.Links.Verify(c.QueryParam("token"), name); err != nil {
		return fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rc, err := h.Store.Open(ctx, name)
	if err != nil {
		return fail(c, err)
	}
	defer rc.Close()

	if c.QueryParam("thumb") != "1" {
		return c.Stream(http.StatusOK, export.MimeByName(name), rc)
	}

	img, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	if err != nil {
		return failMsg(c, http.StatusUnsupportedMediaType, "no thumbnail available for this file")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, thumbMaxSide, thumbMaxSide, imaging.Lanczos), imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return fail(c, err)
	}
	return c.Blob(http.StatusOK, "image/jpeg", buf.Bytes())
}
