// Package countdown reports the time left until the ceremony.
package countdown

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wedding-invite/backend/pkg/response"
)

// Parts is a non-negative duration split into calendar-free units.
type Parts struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Zero reports whether the target has been reached.
func (p Parts) Zero() bool {
	return p == Parts{}
}

// Remaining splits target-now into parts. Past targets give all zeros.
func Remaining(target, now time.Time) Parts {
	d := target.Sub(now)
	if d <= 0 {
		return Parts{}
	}
	secs := int64(d / time.Second)
	return Parts{
		Days:    int(secs / 86400),
		Hours:   int(secs % 86400 / 3600),
		Minutes: int(secs % 3600 / 60),
		Seconds: int(secs % 60),
	}
}

// Snapshot is the JSON body of GET /countdown.
type Snapshot struct {
	Target    time.Time `json:"target"`
	Remaining Parts     `json:"remaining"`
	Done      bool      `json:"done"`
}

// Handler serves the countdown over HTTP and websocket.
type Handler struct {
	target time.Time
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a countdown handler for target.
func NewHandler(target time.Time, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{target: target, logger: logger, now: time.Now}
}

func (h *Handler) snapshot() Snapshot {
	p := Remaining(h.target, h.now())
	return Snapshot{Target: h.target, Remaining: p, Done: p.Zero()}
}

// Get handles GET /countdown.
func (h *Handler) Get(c *gin.Context) {
	response.OK(c, h.snapshot())
}
