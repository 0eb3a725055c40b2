package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

const (
	qrSizeDefault = 200
	qrSizeMin     = 64
	qrSizeMax     = 512
)

// HandleDownloadQR renders the download URL of the completed active session as
// a PNG, so a phone can fetch the archive straight from the server.
// GET /api/self/v1/download-qr?size=200x200
func (ctrl *SessionController) HandleDownloadQR(c *gin.Context) {
	snap, ok := ctrl.orch.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError("No active session"))
		return
	}
	if snap.Status != types.StatusCompleted || snap.DownloadURL == "" {
		c.JSON(http.StatusConflict, tool.FastReturnErrorWithData("Session is not completed", map[string]any{"status": string(snap.Status)}))
		return
	}

	png, err := encodeQR(snap.DownloadURL, clampQRSize(parseSize(c.Query("size"))))
	if err != nil {
		tool.DefaultLogger.Errorf("[QR] Failed to encode %s: %v", snap.DownloadURL, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func encodeQR(content string, size int) ([]byte, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return q.PNG(size)
}

func clampQRSize(size int) int {
	switch {
	case size <= 0:
		return qrSizeDefault
	case size < qrSizeMin:
		return qrSizeMin
	case size > qrSizeMax:
		return qrSizeMax
	}
	return size
}

// parseSize reads "300" or "300x300"; only the width is used.
func parseSize(s string) int {
	width, _, _ := strings.Cut(strings.TrimSpace(s), "x")
	n, err := strconv.Atoi(strings.TrimSpace(width))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
