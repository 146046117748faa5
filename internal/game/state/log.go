package state

// LogEntry is one line of the match history. IndentLevel is the effect
// nesting depth at the time it was written.
type LogEntry struct {
	Player      Player `json:"player"`
	Message     string `json:"message"`
	IndentLevel int    `json:"indentLevel"`
	SourceCard  string `json:"sourceCard,omitempty"`
	Phase       Phase  `json:"phase"`
	Turn        int    `json:"turn"`
}

// AppendLog adds an entry stamped with the current phase and turn.
func (s *GameState) AppendLog(player Player, message string, indent int, sourceCard string) LogEntry {
	entry := LogEntry{
		Player:      player,
		Message:     message,
		IndentLevel: indent,
		SourceCard:  sourceCard,
		Phase:       s.Phase,
		Turn:        s.TurnNumber,
	}
	s.Log = append(s.Log, entry)
	return entry
}

// AnimationType names a visual transition requested from the renderer.
type AnimationType string

const (
	AnimationDelete        AnimationType = "delete"
	AnimationFlip          AnimationType = "flip"
	AnimationShift         AnimationType = "shift"
	AnimationReturn        AnimationType = "return"
	AnimationDiscard       AnimationType = "discard"
	AnimationPlay          AnimationType = "play"
	AnimationDraw          AnimationType = "draw"
	AnimationCompileDelete AnimationType = "compile_delete"
	AnimationGive          AnimationType = "give"
)

// AnimationRequest describes one mutation with the positions it had before
// it happened. Lane and index fields use NoLane when they do not apply.
type AnimationRequest struct {
	Type      AnimationType `json:"type"`
	CardID    string        `json:"cardId,omitempty"`
	CardIDs   []string      `json:"cardIds,omitempty"`
	Owner     Player        `json:"owner"`
	FromLane  int           `json:"fromLane"`
	ToLane    int           `json:"toLane"`
	FromIndex int           `json:"fromIndex"`
	ToIndex   int           `json:"toIndex"`
	HandIndex int           `json:"handIndex"`
}

// NewAnimation returns a request with every position marked as not applicable.
func NewAnimation(t AnimationType, owner Player) AnimationRequest {
	return AnimationRequest{
		Type:      t,
		Owner:     owner,
		FromLane:  NoLane,
		ToLane:    NoLane,
		FromIndex: NoLane,
		ToIndex:   NoLane,
		HandIndex: NoLane,
	}
}
