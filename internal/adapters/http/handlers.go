package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/dkeye/parlor/internal/coordinator"
	"github.com/dkeye/parlor/internal/domain"
	"github.com/dkeye/parlor/internal/session"
)

type handlers struct {
	coord    *coordinator.Coordinator
	profiles *session.Registry
	version  string
}

type profileRequest struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

type createRoomRequest struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

type joinRoomRequest struct {
	Name string `json:"name"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoomStarted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConflict):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNameEmpty), errors.Is(err, domain.ErrNameTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (h *handlers) health(c *gin.Context) {
	c.String(http.StatusOK, "OK\n")
}

func (h *handlers) serveVersion(c *gin.Context) {
	c.String(http.StatusOK, "parlor v%s\n", h.version)
}

func (h *handlers) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.profiles.Profile(identity(c)))
}

func (h *handlers) putProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile payload"})
		return
	}
	if req.Name != "" {
		if err := domain.ValidateName(req.Name); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, h.profiles.SetProfile(identity(c), req.Name, req.Mode))
}

func (h *handlers) resetProfile(c *gin.Context) {
	h.profiles.Reset(identity(c))
	c.Status(http.StatusNoContent)
}

// createRoom makes the caller host of a fresh room. Name and mode fall back
// to the stored profile.
func (h *handlers) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room payload"})
		return
	}

	id := identity(c)
	profile := h.profiles.Profile(id)
	name := req.Name
	if name == "" {
		name = profile.Name
	}
	if err := domain.ValidateName(name); err != nil {
		fail(c, err)
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = profile.Mode
	}

	code, err := h.coord.CreateRoom(c.Request.Context(), id, name, mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code})
}

func (h *handlers) getRoom(c *gin.Context) {
	room, err := h.coord.GetRoom(c.Request.Context(), domain.RoomCode(c.Param("code")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) joinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid join payload"})
		return
	}

	id := identity(c)
	name := req.Name
	if name == "" {
		name = h.profiles.Profile(id).Name
	}
	if err := domain.ValidateName(name); err != nil {
		fail(c, err)
		return
	}

	if err := h.coord.JoinRoom(c.Request.Context(), id, name, domain.RoomCode(c.Param("code"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": true})
}

func (h *handlers) leaveRoom(c *gin.Context) {
	if err := h.coord.LeaveRoom(c.Request.Context(), identity(c), domain.RoomCode(c.Param("code"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

func (h *handlers) listLobbies(c *gin.Context) {
	lobbies, err := h.coord.Lobbies(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lobbies)
}

// roomQR renders a shareable QR code pointing at the room's join URL.
func (h *handlers) roomQR(c *gin.Context) {
	code := domain.RoomCode(c.Param("code"))
	if _, err := h.coord.GetRoom(c.Request.Context(), code); err != nil {
		fail(c, err)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	url := scheme + "://" + c.Request.Host + "/rooms/" + string(code)

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
