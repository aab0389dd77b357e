package server

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/lawnchairsociety/thornwood/internal/dungeon"
	"github.com/lawnchairsociety/thornwood/internal/logger"
)

// Reply types sent to WebSocket clients.
const (
	replyMap     = "map"
	replyRoom    = "room"
	replyBlocked = "blocked"
	replyError   = "error"
)

var directions = map[string]image.Point{
	"north": dungeon.North,
	"south": dungeon.South,
	"east":  dungeon.East,
	"west":  dungeon.West,
}

// request is one client message, e.g. {"op":"move","dir":"north"}.
type request struct {
	Op  string `json:"op"`
	Dir string `json:"dir,omitempty"`
}

// reply is one server message. At is the current room coordinate and
// Position the walker's tile inside it.
type reply struct {
	Type     string    `json:"type"`
	Map      *mapView  `json:"map,omitempty"`
	Room     *roomView `json:"room,omitempty"`
	At       *point    `json:"at,omitempty"`
	Position *point    `json:"position,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func errorReply(format string, args ...any) reply {
	return reply{Type: replyError, Error: fmt.Sprintf(format, args...)}
}

// session is one walker moving through the room graph. It is owned by a
// single connection goroutine.
type session struct {
	graph *dungeon.Graph
	room  image.Point
	pos   image.Point
}

// newSession places a walker on the spawn tile of the spawn room.
func newSession(g *dungeon.Graph) (*session, error) {
	spawn := g.Spawn()
	room, err := g.RoomAt(spawn)
	if err != nil {
		return nil, fmt.Errorf("failed to generate spawn room: %w", err)
	}
	return &session{graph: g, room: spawn, pos: room.SpawnPosition()}, nil
}

// handle decodes one request line and returns the reply for it.
func (s *session) handle(line string) reply {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return errorReply("invalid request: %v", err)
	}

	switch req.Op {
	case "map":
		return s.locate(reply{Type: replyMap, Map: newMapView(s.graph)})
	case "room":
		return s.roomReply()
	case "move":
		return s.move(req.Dir)
	default:
		return errorReply("unknown op %q", req.Op)
	}
}

func (s *session) locate(r reply) reply {
	at, pos := toPoint(s.room), toPoint(s.pos)
	r.At, r.Position = &at, &pos
	return r
}

func (s *session) roomReply() reply {
	room, err := s.graph.RoomAt(s.room)
	if err != nil {
		logger.Error("Room generation failed", "x", s.room.X, "y", s.room.Y, "error", err)
		return errorReply("room generation failed")
	}
	return s.locate(reply{Type: replyRoom, Room: newRoomView(room)})
}

// move walks into the neighboring room. The walker stays put when there is
// no room that way or the room cannot be generated.
func (s *session) move(dir string) reply {
	delta, ok := directions[dir]
	if !ok {
		return errorReply("unknown direction %q", dir)
	}

	next, ok := s.graph.Move(s.room, delta)
	if !ok {
		return s.locate(reply{Type: replyBlocked})
	}

	room, err := s.graph.RoomAt(next)
	if err != nil {
		logger.Error("Room generation failed", "x", next.X, "y", next.Y, "error", err)
		return errorReply("room generation failed")
	}

	s.pos = room.EntryPosition(s.pos, delta)
	s.room = next
	return s.locate(reply{Type: replyRoom, Room: newRoomView(room)})
}
