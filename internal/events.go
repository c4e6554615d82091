package internal

import (
	"github.com/starford/tonearm/internal/player"
	"github.com/starford/tonearm/internal/sse"
)

// playerEvent is the SSE payload for transport changes. The src is left out
// since it is a handle in the player's own URL scope.
type playerEvent struct {
	State    player.State `json:"state"`
	TrackID  string       `json:"trackId,omitempty"`
	Position float64      `json:"position"`
	Duration float64      `json:"duration"`
	Error    string       `json:"error,omitempty"`
}

var playerEventTypes = map[player.EventKind]string{
	player.EventState:    sse.TypePlayerState,
	player.EventPosition: sse.TypePlayerPosition,
	player.EventDuration: sse.TypePlayerDuration,
	player.EventEnded:    sse.TypePlayerEnded,
	player.EventError:    sse.TypePlayerError,
}

type eventSink interface {
	Publish(sse.Event)
	PublishThrottled(sse.Event)
}

// forwardPlayerEvents relays controller events to the broker. Position
// updates are rate limited; everything else is delivered as is.
func forwardPlayerEvents(ctrl *player.Controller, broker eventSink) (remove func()) {
	return ctrl.OnEvent(func(ev player.Event) {
		typ, ok := playerEventTypes[ev.Kind]
		if !ok {
			return
		}
		out := sse.Event{Type: typ, Data: playerEvent{
			State:    ev.State,
			TrackID:  ev.TrackID,
			Position: ev.Position,
			Duration: ev.Duration,
			Error:    ev.Err,
		}}
		if ev.Kind == player.EventPosition {
			broker.PublishThrottled(out)
			return
		}
		broker.Publish(out)
	})
}
