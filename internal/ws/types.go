package ws

const (
	// client - server
	MsgCreateRoom   = "createRoom"
	MsgJoinRoom     = "joinRoom"
	MsgLeaveRoom    = "leaveRoom"
	MsgListRooms    = "listRooms"
	MsgSelectGame   = "selectGame"
	MsgStartGame    = "startGame"
	MsgEndGame      = "endGame"
	MsgGetGameState = "getGameState"
	MsgGameAction   = "gameAction"
	MsgPassTurn     = "passTurn"
	MsgSetName      = "setName"
	MsgSetTeamMode  = "setTeamMode"
	MsgAddTeam      = "addTeam"
	MsgRemoveTeam   = "removeTeam"
	MsgAssignTeam   = "assignTeam"
	MsgSetRelayMode = "setRelayMode"
	MsgPing         = "ping"

	// server - client
	MsgWelcome     = "welcome"
	MsgRoomUpdated = "roomUpdated"
	MsgRoomList    = "roomList"
	MsgGameState   = "gameState"
	MsgError       = "error"
	MsgPong        = "pong"
)
