package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tonearm/internal/account"
	"github.com/starford/tonearm/internal/player"
	"github.com/starford/tonearm/internal/trackservice"
	"github.com/starford/tonearm/internal/visualizer"
)

// Deps is everything the API routes call into.
type Deps struct {
	Tracks    *trackservice.Service
	Player    *player.Controller
	Deck      *player.Deck
	Accounts  *account.DB
	Renderer  *visualizer.Renderer
	Frames    *FrameHub
	Events    http.Handler
	MaxUpload int64
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced on everything
// except the account endpoints, which are the player's own login gate.
// d.Events, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	r := chi.NewRouter()

	ah := NewAccountHandler(d.Accounts)
	r.Post("/register", ah.Register)
	r.Post("/login", ah.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Library.
		h := NewHandler(d.Tracks, d.MaxUpload)
		r.Get("/tracks", h.ListTracks)
		r.Get("/tracks/search", h.Search)
		r.Post("/tracks/import", h.Import)
		r.Post("/tracks/rescan", h.Rescan)
		r.Delete("/tracks", h.Wipe)
		r.Get("/catalog", h.Catalog)

		// Transport.
		ph := NewPlayerHandler(d.Player, d.Deck)
		r.Get("/player", ph.Status)
		r.Post("/player/toggle", ph.Toggle)
		r.Post("/player/next", ph.Next)
		r.Post("/player/prev", ph.Prev)
		r.Post("/player/select", ph.Select)
		r.Post("/player/seek", ph.Seek)
		r.Post("/player/volume", ph.Volume)

		// Visualizer.
		vh := NewVisualizerHandler(d.Renderer, d.Frames)
		r.Get("/visualizer/frame.png", vh.Frame)
		r.Post("/visualizer/resize", vh.Resize)
		if d.Frames != nil {
			r.Get("/visualizer/ws", d.Frames.ServeHTTP)
		}

		// SSE endpoint (protected by same auth middleware).
		if d.Events != nil {
			r.Get("/events", d.Events.ServeHTTP)
		}
	})

	return r
}
