package protocol

// EntityID is assigned by the server and unique among live entities.
type EntityID = uint64

// Tick counts simulation steps. Inbound ticks come from the server; the
// command dispatcher keeps its own independent outbound counter.
type Tick = uint64

type Vec2 struct {
	X float32 `msgpack:"x" json:"x"`
	Y float32 `msgpack:"y" json:"y"`
}

// Server message tags.
const (
	TagGameState          = "GameState"
	TagVibeOutput         = "VibeOutput"
	TagVibeSessionStarted = "VibeSessionStarted"
	TagVibeSessionEnded   = "VibeSessionEnded"
	TagGradeResult        = "GradeResult"
)
