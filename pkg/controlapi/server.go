// Package controlapi contains a HTTP server that controls a Player.
package controlapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vicon-security/esplayer"
)

// Server is a HTTP server that exposes the commands and status messages of a Player.
//
// Routes:
//
//	POST /player/load      InitOptions
//	POST /player/play
//	POST /player/stop
//	POST /player/mute
//	POST /player/viewrect  Rect
//	POST /player/command   Command
//	POST /player/close
//	GET  /player/state
//	GET  /player/events    server-sent events ("status" and "state")
type Server struct {
	// Listen address.
	Address string

	// Timeout of read operations.
	// It defaults to 10 seconds.
	ReadTimeout time.Duration

	// Player to control.
	Player *esplayer.Player

	router     *gin.Engine
	ln         net.Listener
	httpServer *http.Server
	hub        *hub
	ctx        context.Context
	ctxCancel  func()
}

// Initialize initializes the Server.
func (s *Server) Initialize() error {
	if s.Player == nil {
		return errors.New("player is not set")
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 10 * time.Second
	}

	s.hub = &hub{}
	s.hub.initialize()

	s.ctx, s.ctxCancel = context.WithCancel(context.Background())

	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.SetTrustedProxies(nil) //nolint:errcheck

	group := s.router.Group("/player")
	group.POST("/load", s.onLoad)
	group.POST("/play", s.onPlay)
	group.POST("/stop", s.onStop)
	group.POST("/mute", s.onMute)
	group.POST("/viewrect", s.onViewRect)
	group.POST("/command", s.onCommand)
	group.POST("/close", s.onClose)
	group.GET("/state", s.onState)
	group.GET("/events", s.onEvents)

	if s.Address == "" {
		return nil
	}

	var err error
	s.ln, err = net.Listen("tcp", s.Address)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.ReadTimeout,
	}

	go s.httpServer.Serve(s.ln) //nolint:errcheck

	return nil
}

// Close closes the Server.
func (s *Server) Close() {
	s.ctxCancel()

	if s.httpServer != nil {
		s.httpServer.Shutdown(context.Background()) //nolint:errcheck
	}
}

// Handler returns the HTTP handler of the Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// PublishStatus sends a status message to clients of the event stream.
// It can be used as the Player OnStatus callback.
func (s *Server) PublishStatus(st esplayer.Status) {
	s.hub.publish(event{name: "status", data: st})
}

// PublishState sends a state change to clients of the event stream.
// It can be used as the Player OnStateChange callback.
func (s *Server) PublishState(state esplayer.State) {
	s.hub.publish(event{name: "state", data: gin.H{"state": state}})
}

func (s *Server) writeError(ctx *gin.Context, status int, err error) {
	ctx.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) onLoad(ctx *gin.Context) {
	var opts esplayer.InitOptions
	err := ctx.ShouldBindJSON(&opts)
	if err != nil {
		s.writeError(ctx, http.StatusBadRequest, err)
		return
	}

	if opts.URL == "" {
		s.writeError(ctx, http.StatusBadRequest, errors.New("url is missing"))
		return
	}

	s.Player.Init(opts)
	ctx.Status(http.StatusOK)
}

func (s *Server) onPlay(ctx *gin.Context) {
	s.Player.Play()
	ctx.Status(http.StatusOK)
}

func (s *Server) onStop(ctx *gin.Context) {
	s.Player.Stop()
	ctx.Status(http.StatusOK)
}

func (s *Server) onMute(ctx *gin.Context) {
	s.Player.Mute()
	ctx.Status(http.StatusOK)
}

func (s *Server) onViewRect(ctx *gin.Context) {
	var r esplayer.Rect
	err := ctx.ShouldBindJSON(&r)
	if err != nil {
		s.writeError(ctx, http.StatusBadRequest, err)
		return
	}

	s.Player.SetViewRect(r)
	ctx.Status(http.StatusOK)
}

func (s *Server) onCommand(ctx *gin.Context) {
	var cmd esplayer.Command
	err := ctx.ShouldBindJSON(&cmd)
	if err != nil {
		s.writeError(ctx, http.StatusBadRequest, err)
		return
	}

	err = s.Player.HandleCommand(cmd)
	if err != nil {
		s.writeError(ctx, http.StatusBadRequest, err)
		return
	}

	ctx.Status(http.StatusOK)
}

func (s *Server) onClose(ctx *gin.Context) {
	s.Player.Close()
	ctx.Status(http.StatusOK)
}

func (s *Server) onState(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"state": s.Player.State()})
}

func (s *Server) onEvents(ctx *gin.Context) {
	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	ctx.Header("Cache-Control", "no-cache")

	// the current state is sent first.
	ctx.SSEvent("state", gin.H{"state": s.Player.State()})
	ctx.Writer.Flush()

	ctx.Stream(func(_ io.Writer) bool {
		select {
		case e := <-ch:
			ctx.SSEvent(e.name, e.data)
			return true

		case <-ctx.Request.Context().Done():
			return false

		case <-s.ctx.Done():
			return false
		}
	})
}
