package party

import (
	"crypto/rand"
	"math/big"
)

// Room is one watch-party session. All fields are guarded by the
// coordinator mutex; a room with zero participants never survives the
// operation that emptied it.
type Room struct {
	Code         string
	LeaderID     string
	DramaName    string
	VideoState   VideoState
	participants map[string]*Participant
	joinCounter  uint64
}

func (r *Room) count() int {
	return len(r.participants)
}

// nextLeader picks the earliest-joined remaining participant. Join order is
// tracked explicitly so migration never depends on map iteration order.
func (r *Room) nextLeader() *Participant {
	var next *Participant
	for _, p := range r.participants {
		if next == nil || p.joinSeq < next.joinSeq {
			next = p
		}
	}
	return next
}

// roomCodeAlphabet omits characters that are easy to misread when a code is
// shared out loud or handwritten (0/O, 1/I/L).
const roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

func newRoomCode() string {
	code := make([]byte, roomCodeLength)
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing is unrecoverable for code generation
			panic(err)
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code)
}
