package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/as00paf/kpoker/internal/ai"
	"github.com/as00paf/kpoker/internal/auth"
	"github.com/as00paf/kpoker/internal/config"
	"github.com/as00paf/kpoker/internal/engine"
	"github.com/as00paf/kpoker/internal/history"
	"github.com/as00paf/kpoker/internal/models"
	"github.com/as00paf/kpoker/internal/room"
)

const defaultStartingChips = int64(1000)

// Server ties the transport to the room registry and the auth service.
type Server struct {
	cfg      config.Config
	auth     *auth.Service
	registry *room.Registry
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool

	log *logrus.Entry
}

func NewServer(cfg config.Config, authSvc *auth.Service, historyPub *history.Publisher) *Server {
	s := &Server{
		cfg:  cfg,
		auth: authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]bool),
		log:     logrus.WithField("component", "server"),
	}
	s.registry = room.NewRegistry(authSvc, historyPub, s.broadcastRoomList)
	return s
}

// Registry exposes the room registry, mainly for shutdown.
func (s *Server) Registry() *room.Registry {
	return s.registry
}

// Router builds the gin engine with the REST auth endpoints and the
// websocket upgrade route.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.Default())

	api := r.Group("/api")
	{
		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)
	}
	r.GET("/ws", s.handleWebSocket)
	return r
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Bankroll int64  `json:"bankroll"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	user, err := s.auth.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		s.log.WithError(err).Error("register failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	s.respondWithToken(c, user)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	user, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		s.log.WithError(err).Error("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	s.respondWithToken(c, user)
}

func (s *Server) respondWithToken(c *gin.Context, user *auth.User) {
	token, err := s.auth.GenerateToken(user.ID)
	if err != nil {
		s.log.WithError(err).Error("signing token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, authResponse{
		Token:    token,
		PlayerID: user.ID,
		Username: user.Username,
		Bankroll: user.Bankroll,
	})
}

// handleWebSocket upgrades the connection. A valid ?token= authenticates the
// session up front; without one the session stays anonymous and may still
// register or log in over the socket.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := newClient(s, conn)

	if token := c.Query("token"); token != "" {
		if userID, err := s.auth.ValidateToken(token); err == nil {
			if user, err := s.auth.GetUser(userID); err == nil {
				client.PlayerID = user.ID
				client.PlayerName = user.Username
				client.authed = true
			}
		} else {
			client.sendError("invalid token")
		}
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()

	if err := client.Send(models.RoomListMessage(s.registry.List())); err != nil {
		s.log.WithError(err).Debug("dropping initial room list")
	}
}

func (s *Server) detach(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

// broadcastRoomList fans the lobby listing out to every connected client.
func (s *Server) broadcastRoomList() {
	msg := models.RoomListMessage(s.registry.List())
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if err := c.Send(msg); err != nil {
			s.log.WithError(err).Debug("dropping room list update")
		}
	}
}

// handleMessage dispatches one inbound envelope from a client.
func (s *Server) handleMessage(c *Client, msg models.GameMessage) {
	switch msg.Type {
	case models.MsgRegister:
		s.wsRegister(c, msg)
	case models.MsgLogin:
		s.wsLogin(c, msg)
	case models.MsgCreateRoom:
		s.wsCreateRoom(c, msg)
	case models.MsgCreateSinglePlayerRoom:
		s.wsCreateSinglePlayerRoom(c, msg)
	case models.MsgJoinRoom:
		s.wsJoinRoom(c, msg)
	case models.MsgLeaveRoom:
		s.wsLeaveRoom(c)
	case models.MsgAction:
		s.wsAction(c, msg)
	case models.MsgStartGame:
		s.wsStartGame(c)
	default:
		c.sendError("unknown message type")
	}
}

func (s *Server) wsRegister(c *Client, msg models.GameMessage) {
	// Authenticating swaps the session id, which would orphan an existing
	// seat, so it is only allowed outside a room.
	if c.room != nil {
		c.sendError("leave the room before signing in")
		return
	}
	user, err := s.auth.Register(msg.Username, msg.Password)
	if err != nil {
		s.sendAuthFailure(c, err)
		return
	}
	s.finishAuth(c, user)
}

func (s *Server) wsLogin(c *Client, msg models.GameMessage) {
	if c.room != nil {
		c.sendError("leave the room before signing in")
		return
	}
	user, err := s.auth.Login(msg.Username, msg.Password)
	if err != nil {
		s.sendAuthFailure(c, err)
		return
	}
	s.finishAuth(c, user)
}

func (s *Server) sendAuthFailure(c *Client, err error) {
	text := "authentication failed"
	if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUsernameTaken) {
		text = err.Error()
	} else {
		s.log.WithError(err).Error("ws auth failed")
	}
	if err := c.Send(models.GameMessage{Type: models.MsgAuthResponse, Message: text}); err != nil {
		c.log.WithError(err).Debug("dropping auth response")
	}
}

func (s *Server) finishAuth(c *Client, user *auth.User) {
	c.PlayerID = user.ID
	c.PlayerName = user.Username
	c.authed = true
	resp := models.GameMessage{
		Type:     models.MsgAuthResponse,
		Success:  true,
		Token:    "",
		PlayerID: user.ID,
		Username: user.Username,
		Bankroll: user.Bankroll,
	}
	if token, err := s.auth.GenerateToken(user.ID); err == nil {
		resp.Token = token
	}
	if err := c.Send(resp); err != nil {
		c.log.WithError(err).Debug("dropping auth response")
	}
}

func (s *Server) wsCreateRoom(c *Client, msg models.GameMessage) {
	if c.room != nil {
		c.sendError("already in a room")
		return
	}
	name := msg.RoomName
	if name == "" {
		name = "Table"
	}
	r := s.registry.CreateRoom(name)
	s.joinRoom(c, r, msg.PlayerName)
}

func (s *Server) wsCreateSinglePlayerRoom(c *Client, msg models.GameMessage) {
	if c.room != nil {
		c.sendError("already in a room")
		return
	}
	r, err := s.registry.CreateSinglePlayerRoom(c.displayName(msg.PlayerName), ai.ParseDifficulty(msg.Difficulty))
	if err != nil {
		s.log.WithError(err).Error("creating single player room")
		c.sendError("could not create room")
		return
	}
	s.joinRoom(c, r, msg.PlayerName)
}

func (s *Server) wsJoinRoom(c *Client, msg models.GameMessage) {
	if c.room != nil {
		c.sendError("already in a room")
		return
	}
	r, err := s.registry.Get(msg.RoomID)
	if err != nil {
		c.sendError("room not found")
		return
	}
	s.joinRoom(c, r, msg.PlayerName)
}

func (s *Server) joinRoom(c *Client, r *room.Room, requestedName string) {
	if err := r.Join(c.PlayerID, c.displayName(requestedName), s.startingChips(c), c); err != nil {
		switch {
		case errors.Is(err, engine.ErrTableFull):
			c.sendError("room is full")
		case errors.Is(err, engine.ErrHandInProgress):
			c.sendError("hand in progress, try again between hands")
		default:
			c.sendError("could not join room")
		}
		return
	}
	c.room = r
}

func (s *Server) wsLeaveRoom(c *Client) {
	if c.room == nil {
		return
	}
	c.room.Leave(c.PlayerID)
	c.room = nil
}

func (s *Server) wsAction(c *Client, msg models.GameMessage) {
	if c.room == nil {
		c.sendError("not in a room")
		return
	}
	action, err := models.ParseAction(msg.Action)
	if err != nil {
		c.sendError("malformed action")
		return
	}
	if err := c.room.HandleAction(c.PlayerID, action); err != nil {
		if errors.Is(err, engine.ErrNotYourTurn) {
			c.sendError("Not your turn")
			return
		}
		c.sendError("action failed")
	}
}

func (s *Server) wsStartGame(c *Client) {
	if c.room == nil {
		c.sendError("not in a room")
		return
	}
	if err := c.room.StartGame(); err != nil {
		if errors.Is(err, engine.ErrNotEnoughPlayers) {
			c.sendError("need at least 2 players to start")
			return
		}
		c.sendError("could not start game")
	}
}

func (c *Client) displayName(requested string) string {
	if requested != "" {
		return requested
	}
	if c.PlayerName != "" {
		return c.PlayerName
	}
	return "Player"
}

// startingChips uses the stored bankroll for authenticated players and a
// fixed default otherwise.
func (s *Server) startingChips(c *Client) int64 {
	if c.authed {
		if bankroll, err := s.auth.GetBankroll(c.PlayerID); err == nil && bankroll > 0 {
			return bankroll
		}
	}
	return defaultStartingChips
}
