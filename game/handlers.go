package game

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	admissionRate  = rate.Limit(2)
	admissionBurst = 5
	queryTimeout   = 2 * time.Second
)

type HotelHandler struct {
	hotel    *Hotel
	upgrader websocket.Upgrader

	mu        sync.Mutex
	admission map[string]*rate.Limiter
}

func NewHotelHandler(hotel *Hotel, allowedOrigins []string) *HotelHandler {
	return &HotelHandler{
		hotel: hotel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		admission: make(map[string]*rate.Limiter),
	}
}

// admit reports whether ip may open another connection right now.
func (h *HotelHandler) admit(ip string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.admission[ip]
	if !ok {
		l = rate.NewLimiter(admissionRate, admissionBurst)
		h.admission[ip] = l
	}
	return l.Allow()
}

// PruneAdmission forgets addresses whose bucket has refilled.
func (h *HotelHandler) PruneAdmission() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ip, l := range h.admission {
		if l.Tokens() >= admissionBurst {
			delete(h.admission, ip)
		}
	}
}

func (h *HotelHandler) WebsocketHandler(ctx *gin.Context) {
	ip := ctx.ClientIP()
	if !h.admit(ip) {
		ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": ErrRateLimited.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(newConnectionID(), ip, NewWebsocketConnection(conn))
	// the request context ends with the handler; the client outlives it
	go client.Serve(context.Background(), h.hotel)
}

func (h *HotelHandler) StatsHandler(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), queryTimeout)
	defer cancel()
	stats, err := h.hotel.Stats(c)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "hotel-unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (h *HotelHandler) OpenRoomsHandler(ctx *gin.Context) {
	kind, ok := parseGameKind(ctx.Query("kind"))
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ErrInvalidGameKind.Error()})
		return
	}
	c, cancel := context.WithTimeout(ctx.Request.Context(), queryTimeout)
	defer cancel()
	rooms, err := h.hotel.OpenRooms(c, kind)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "hotel-unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"gameType": kind, "lobbies": rooms})
}

func (h *HotelHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.WebsocketHandler)
	r.GET("/stats", h.StatsHandler)
	r.GET("/rooms", h.OpenRoomsHandler)
}
