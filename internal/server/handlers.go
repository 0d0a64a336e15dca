package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mk-obs/telops/internal/astro"
	"github.com/mk-obs/telops/internal/rotcalc"
	"github.com/mk-obs/telops/pkg/healthcheck"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	if !s.auth.enabled() {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "authentication not configured"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.auth.login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleCollisions(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.GetStatus())
}

func (s *Server) handleSite(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"observer": s.site.Observer,
		"status":   s.site.Status(),
	})
}

func (s *Server) handlePointings(c *gin.Context) {
	pointings, err := s.monitor.Pointings(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to fetch pointings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pointings unavailable"})
		return
	}
	c.JSON(http.StatusOK, pointings)
}

// solveRequest is the POST /api/v1/rotations body. RA and Dec accept
// sexagesimal strings or decimal degrees. An empty start time means now;
// omitted current angles default to the live telescope status.
type solveRequest struct {
	Name        string   `json:"name" binding:"required"`
	RA          string   `json:"ra" binding:"required"`
	Dec         string   `json:"dec" binding:"required"`
	Equinox     float64  `json:"equinox"`
	PADeg       float64  `json:"pa_deg"`
	StartTime   string   `json:"start_time"`
	DurationSec float64  `json:"duration_sec" binding:"required,gt=0"`
	Instrument  string   `json:"instrument" binding:"required"`
	CurRotDeg   *float64 `json:"cur_rot_deg"`
	CurAzDeg    *float64 `json:"cur_az_deg"`
}

func (s *Server) handleSolveRotation(c *gin.Context) {
	var req solveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raDeg, err := astro.ParseRA(req.RA)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	decDeg, err := astro.ParseDec(req.Dec)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startTime := time.Now()
	if req.StartTime != "" {
		startTime, err = time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be RFC3339"})
			return
		}
	}

	equinox := req.Equinox
	if equinox == 0 {
		equinox = 2000.0
	}

	status := s.site.Status()
	curRot := status.RotDeg
	if req.CurRotDeg != nil {
		curRot = *req.CurRotDeg
	}
	curAz := status.AzDeg
	if req.CurAzDeg != nil {
		curAz = *req.CurAzDeg
	}

	res, solveErr := s.solver.Solve(rotcalc.Request{
		Target: astro.Target{
			Name:    req.Name,
			RADeg:   raDeg,
			DecDeg:  decDeg,
			Equinox: equinox,
		},
		PADeg:       req.PADeg,
		StartTime:   startTime,
		DurationSec: req.DurationSec,
		Instrument:  req.Instrument,
		CurRotDeg:   curRot,
		CurAzDeg:    curAz,
	})

	// infeasible solves still record their row so operators can see the
	// rejected candidates in the table
	row := rotcalc.FormatRow(res)
	s.resultLog.Add(res)

	if solveErr != nil {
		if errors.Is(solveErr, rotcalc.ErrOutOfRange) || errors.Is(solveErr, rotcalc.ErrBelowHorizon) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": solveErr.Error(),
				"row":   row,
			})
			return
		}
		s.logger.Error("Rotation solve failed",
			zap.String("target", req.Name),
			zap.Error(solveErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": solveErr.Error()})
		return
	}

	if s.onSolve != nil {
		s.onSolve(res)
	}

	c.JSON(http.StatusOK, gin.H{"row": row})
}

func (s *Server) handleRotationLog(c *gin.Context) {
	c.JSON(http.StatusOK, s.resultLog.Rows())
}

func (s *Server) handleClearRotationLog(c *gin.Context) {
	s.resultLog.Clear()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHealth(c *gin.Context) {
	result := s.health.CheckAll(c.Request.Context())

	code := http.StatusOK
	if result.OverallStatus == healthcheck.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, result)
}
