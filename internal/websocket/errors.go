package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrInvalidPayload  = errors.New("invalid event payload")
	ErrNotInRoomGroup  = errors.New("connection has not joined this room group")
)
