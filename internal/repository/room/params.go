package room

type ConnectionParams struct {
	RoomId       string
	UserId       string
	ConnectionId string
}
