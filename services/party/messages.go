package party

// Client -> server frame. One struct covers every message type; the
// dispatcher reads Type and picks the fields it needs.
type inboundFrame struct {
	Type      string           `json:"type"`
	BookID    string           `json:"bookId,omitempty"`
	Episode   int              `json:"episode,omitempty"`
	DramaName string           `json:"dramaName,omitempty"`
	Name      string           `json:"name,omitempty"`
	RoomID    string           `json:"roomId,omitempty"`
	State     *VideoStatePatch `json:"state,omitempty"`
	Message   string           `json:"message,omitempty"`
	Emoji     string           `json:"emoji,omitempty"`
}

// VideoState is the shared playback state a room's leader drives.
type VideoState struct {
	BookID  string  `json:"bookId"`
	Episode int     `json:"episode"`
	Time    float64 `json:"time"`
	Playing bool    `json:"playing"`
}

// VideoStatePatch is a partial VideoState; absent fields leave the room
// state untouched (shallow merge).
type VideoStatePatch struct {
	BookID  *string  `json:"bookId"`
	Episode *int     `json:"episode"`
	Time    *float64 `json:"time"`
	Playing *bool    `json:"playing"`
}

func (s *VideoState) apply(patch *VideoStatePatch) {
	if patch == nil {
		return
	}
	if patch.BookID != nil {
		s.BookID = *patch.BookID
	}
	if patch.Episode != nil {
		s.Episode = *patch.Episode
	}
	if patch.Time != nil {
		s.Time = *patch.Time
	}
	if patch.Playing != nil {
		s.Playing = *patch.Playing
	}
}

// Server -> client frames.

type roomCreatedFrame struct {
	Type          string `json:"type"`
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	IsLeader      bool   `json:"isLeader"`
}

type roomJoinedFrame struct {
	Type             string     `json:"type"`
	RoomID           string     `json:"roomId"`
	ParticipantID    string     `json:"participantId"`
	ParticipantCount int        `json:"participantCount"`
	DramaName        string     `json:"dramaName"`
	VideoState       VideoState `json:"videoState"`
}

type countFrame struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type syncFrame struct {
	Type  string     `json:"type"`
	State VideoState `json:"state"`
}

type chatFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

type reactionFrame struct {
	Type          string `json:"type"`
	Emoji         string `json:"emoji"`
	ParticipantID string `json:"participantId"`
}

type promotedFrame struct {
	Type string `json:"type"`
}

type leaderChangedFrame struct {
	Type     string `json:"type"`
	LeaderID string `json:"leaderId"`
	Name     string `json:"name"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
