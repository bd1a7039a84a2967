package models

import "encoding/json"

// Inbound and outbound message tags. The envelope is flat: one struct with a
// type discriminator and optional fields, so clients using tagged polymorphic
// serialization interoperate directly.
const (
	MsgRegister               = "register"
	MsgLogin                  = "login"
	MsgCreateRoom             = "create_room"
	MsgCreateSinglePlayerRoom = "create_single_player_room"
	MsgJoinRoom               = "join_room"
	MsgLeaveRoom              = "leave_room"
	MsgAction                 = "action"
	MsgStartGame              = "start_game"

	MsgAuthResponse = "auth_response"
	MsgRoomList     = "room_list"
	MsgStateUpdate  = "state_update"
	MsgError        = "error"
)

// GameMessage is the wire envelope for the websocket protocol, both
// directions. Only the fields relevant to Type are populated.
type GameMessage struct {
	Type string `json:"type"`

	// register / login
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// create_room / create_single_player_room / join_room
	RoomName   string `json:"roomName,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	PlayerName string `json:"playerName,omitempty"`

	// action
	Action json.RawMessage `json:"action,omitempty"`

	// auth_response
	Success  bool   `json:"success"`
	Token    string `json:"token,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Bankroll int64  `json:"bankroll,omitempty"`

	// room_list
	Rooms []RoomInfo `json:"rooms,omitempty"`

	// state_update
	State *GameState `json:"state,omitempty"`

	// error, auth_response failure detail
	Message string `json:"message,omitempty"`
}

// RoomInfo is a lobby listing entry.
type RoomInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	IsStarted   bool   `json:"isStarted"`
}

func ErrorMessage(text string) GameMessage {
	return GameMessage{Type: MsgError, Message: text}
}

func StateUpdate(state *GameState) GameMessage {
	return GameMessage{Type: MsgStateUpdate, State: state}
}

func RoomListMessage(rooms []RoomInfo) GameMessage {
	return GameMessage{Type: MsgRoomList, Rooms: rooms}
}
