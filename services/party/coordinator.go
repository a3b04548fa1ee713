package party

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	outboundBuffer = 64
	maxChatRunes   = 2000
)

// Participant is one connected client. It lives in the connection registry
// until it joins a room, then belongs to exactly that room until it leaves
// or disconnects. Outbound frames go through a buffered channel drained by
// the connection's write pump; a participant that stops draining is dropped
// rather than allowed to stall the room.
type Participant struct {
	ID   string
	Name string

	out     chan []byte
	closed  bool
	joinSeq uint64
	room    *Room
}

// Outbound is the stream of marshaled frames to write to the connection.
// It is closed when the participant is dropped.
func (p *Participant) Outbound() <-chan []byte {
	return p.out
}

// Coordinator owns the room registry. A single mutex serializes every
// join/leave/broadcast so leader migration stays atomic with respect to
// concurrent room mutations.
type Coordinator struct {
	mu    sync.Mutex
	rooms map[string]*Room
	now   func() time.Time
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// Register adds a new lobby participant.
func (c *Coordinator) Register() *Participant {
	return &Participant{
		ID:  uuid.NewString(),
		out: make(chan []byte, outboundBuffer),
	}
}

// Disconnect removes the participant from its room (if any) and closes its
// outbound stream.
func (c *Coordinator) Disconnect(p *Participant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaveLocked(p)
	c.dropLocked(p)
}

// HandleMessage dispatches one raw client frame. Malformed frames are
// logged and dropped; the connection stays open.
func (c *Coordinator) HandleMessage(p *Participant, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("[party] dropping malformed frame from %s: %v", p.ID, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch frame.Type {
	case "create_room":
		c.createRoomLocked(p, frame)
	case "join_room":
		c.joinRoomLocked(p, frame)
	case "sync":
		c.syncLocked(p, frame)
	case "chat":
		c.chatLocked(p, frame)
	case "reaction":
		c.reactionLocked(p, frame)
	case "leave_room":
		c.leaveLocked(p)
	default:
		log.Printf("[party] unknown message type %q from %s", frame.Type, p.ID)
	}
}

// RoomCount reports the number of live rooms.
func (c *Coordinator) RoomCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

func (c *Coordinator) createRoomLocked(p *Participant, frame inboundFrame) {
	// Creating while in a room implicitly leaves the old one.
	c.leaveLocked(p)

	code := newRoomCode()
	for c.rooms[code] != nil {
		code = newRoomCode()
	}

	if frame.Name != "" {
		p.Name = frame.Name
	}
	if p.Name == "" {
		p.Name = "Host"
	}

	room := &Room{
		Code:      code,
		LeaderID:  p.ID,
		DramaName: frame.DramaName,
		VideoState: VideoState{
			BookID:  frame.BookID,
			Episode: frame.Episode,
		},
		participants: map[string]*Participant{p.ID: p},
	}
	p.room = room
	p.joinSeq = room.joinCounter
	room.joinCounter++
	c.rooms[code] = room

	log.Printf("[party] room %s created by %s (%s)", code, p.Name, p.ID)
	c.deliverLocked(p, roomCreatedFrame{
		Type:          "room_created",
		RoomID:        code,
		ParticipantID: p.ID,
		IsLeader:      true,
	})
}

func (c *Coordinator) joinRoomLocked(p *Participant, frame inboundFrame) {
	room, ok := c.rooms[frame.RoomID]
	if !ok {
		c.deliverLocked(p, errorFrame{Type: "error", Message: "Room not found"})
		return
	}

	if frame.Name != "" {
		p.Name = frame.Name
	}
	if p.Name == "" {
		p.Name = "Guest"
	}

	// Joining the current room again just resends the joined state. Leaving
	// first would destroy a sole-occupant room and leave the caller attached
	// to an unregistered room object.
	rejoin := p.room == room
	if !rejoin {
		c.leaveLocked(p)
		p.room = room
		p.joinSeq = room.joinCounter
		room.joinCounter++
		room.participants[p.ID] = p
		log.Printf("[party] %s (%s) joined room %s, %d participants", p.Name, p.ID, room.Code, room.count())
	}

	c.deliverLocked(p, roomJoinedFrame{
		Type:             "room_joined",
		RoomID:           room.Code,
		ParticipantID:    p.ID,
		ParticipantCount: room.count(),
		DramaName:        room.DramaName,
		VideoState:       room.VideoState,
	})
	if !rejoin {
		c.broadcastLocked(room, p, countFrame{Type: "participant_joined", Count: room.count()})
	}
}

func (c *Coordinator) syncLocked(p *Participant, frame inboundFrame) {
	room := p.room
	if room == nil || room.LeaderID != p.ID {
		// Only the current leader drives playback; stale syncs from a
		// demoted leader are dropped.
		return
	}
	room.VideoState.apply(frame.State)
	c.broadcastLocked(room, p, syncFrame{Type: "sync", State: room.VideoState})
}

func (c *Coordinator) chatLocked(p *Participant, frame inboundFrame) {
	room := p.room
	if room == nil {
		return
	}
	text := frame.Message
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > maxChatRunes {
		text = string(runes[:maxChatRunes])
	}
	c.broadcastLocked(room, p, chatFrame{
		Type:      "chat",
		Message:   text,
		Name:      p.Name,
		Timestamp: c.now().UnixMilli(),
	})
}

func (c *Coordinator) reactionLocked(p *Participant, frame inboundFrame) {
	room := p.room
	if room == nil || frame.Emoji == "" {
		return
	}
	c.broadcastLocked(room, p, reactionFrame{
		Type:          "reaction",
		Emoji:         frame.Emoji,
		ParticipantID: p.ID,
	})
}

// leaveLocked removes p from its room, destroying the room when it empties
// and migrating leadership when the leader departs.
func (c *Coordinator) leaveLocked(p *Participant) {
	room := p.room
	if room == nil {
		return
	}
	delete(room.participants, p.ID)
	p.room = nil

	if room.count() == 0 {
		delete(c.rooms, room.Code)
		log.Printf("[party] room %s destroyed", room.Code)
		return
	}

	if room.LeaderID == p.ID {
		next := room.nextLeader()
		room.LeaderID = next.ID
		log.Printf("[party] room %s leader migrated to %s (%s)", room.Code, next.Name, next.ID)
		c.deliverLocked(next, promotedFrame{Type: "promoted_to_leader"})
		for _, other := range room.participants {
			if other.ID == next.ID {
				continue
			}
			c.deliverLocked(other, leaderChangedFrame{
				Type:     "leader_changed",
				LeaderID: next.ID,
				Name:     next.Name,
			})
		}
	}

	for _, other := range room.participants {
		c.deliverLocked(other, countFrame{Type: "participant_left", Count: room.count()})
	}
}

// broadcastLocked fans a frame out to every room participant except the
// originator.
func (c *Coordinator) broadcastLocked(room *Room, from *Participant, frame any) {
	for _, p := range room.participants {
		if from != nil && p.ID == from.ID {
			continue
		}
		c.deliverLocked(p, frame)
	}
}

// deliverLocked marshals and queues one frame. A participant whose buffer
// is full has stopped draining; it is dropped so the room never blocks.
func (c *Coordinator) deliverLocked(p *Participant, frame any) {
	if p.closed {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[party] marshal frame for %s: %v", p.ID, err)
		return
	}
	select {
	case p.out <- data:
	default:
		log.Printf("[party] dropping slow participant %s", p.ID)
		c.leaveLocked(p)
		c.dropLocked(p)
	}
}

func (c *Coordinator) dropLocked(p *Participant) {
	if p.closed {
		return
	}
	p.closed = true
	close(p.out)
}
