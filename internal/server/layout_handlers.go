package server

import (
	"encoding/json"
	"math"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dudecon/SpaceWheat-sub021/internal/batch"
	"github.com/dudecon/SpaceWheat-sub021/internal/biome"
	"github.com/dudecon/SpaceWheat-sub021/internal/forcegraph"
)

const layoutDt = 1.0 / 60.0

// LayoutHandlers serves force-directed bubble layouts per subsystem. The
// position state lives here, seeded on first request and advanced on each
// step call from the current quantum observables.
type LayoutHandlers struct {
	engine  *forcegraph.Engine
	batcher *batch.Batcher
	log     zerolog.Logger

	mu     sync.Mutex
	states map[string]*layoutState
}

type layoutState struct {
	positions  []forcegraph.Vec2
	velocities []forcegraph.Vec2
}

type layoutStepRequest struct {
	Frozen []bool `json:"frozen,omitempty"`
	Steps  int    `json:"steps,omitempty"`
}

type layoutResponse struct {
	Positions  []forcegraph.Vec2 `json:"positions"`
	Velocities []forcegraph.Vec2 `json:"velocities"`
}

// NewLayoutHandlers creates the layout handlers.
func NewLayoutHandlers(cfg forcegraph.Config, batcher *batch.Batcher, log zerolog.Logger) *LayoutHandlers {
	return &LayoutHandlers{
		engine:  forcegraph.New(cfg, log),
		batcher: batcher,
		log:     log.With().Str("component", "layout").Logger(),
		states:  make(map[string]*layoutState),
	}
}

// HandleGet returns the current layout without advancing it.
func (h *LayoutHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	sub := h.subsystemFor(w, r)
	if sub == nil {
		return
	}

	h.mu.Lock()
	st := h.stateFor(sub)
	resp := layoutResponse{
		Positions:  append([]forcegraph.Vec2(nil), st.positions...),
		Velocities: append([]forcegraph.Vec2(nil), st.velocities...),
	}
	h.mu.Unlock()

	writeJSON(w, resp)
}

// HandleStep advances the layout using the subsystem's current Bloch packet
// and mutual information, then returns the new positions.
func (h *LayoutHandlers) HandleStep(w http.ResponseWriter, r *http.Request) {
	sub := h.subsystemFor(w, r)
	if sub == nil {
		return
	}

	var req layoutStepRequest
	if r.Body != nil {
		// An empty body means one unfrozen step.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	steps := req.Steps
	if steps < 1 {
		steps = 1
	}
	if steps > 600 {
		steps = 600
	}

	bloch, err := sub.BlochPacket()
	if err != nil {
		h.log.Error().Err(err).Str("biome", sub.Name()).Msg("Failed to compute Bloch packet for layout")
		http.Error(w, "failed to compute observables", http.StatusInternalServerError)
		return
	}
	mi, err := sub.MutualInformation()
	if err != nil {
		h.log.Error().Err(err).Str("biome", sub.Name()).Msg("Failed to compute mutual information for layout")
		http.Error(w, "failed to compute observables", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	st := h.stateFor(sub)
	for i := 0; i < steps; i++ {
		h.engine.Step(st.positions, st.velocities, bloch, mi, forcegraph.Vec2{}, layoutDt, req.Frozen)
	}
	resp := layoutResponse{
		Positions:  append([]forcegraph.Vec2(nil), st.positions...),
		Velocities: append([]forcegraph.Vec2(nil), st.velocities...),
	}
	h.mu.Unlock()

	writeJSON(w, resp)
}

// stateFor returns the layout state for a subsystem, seeding new nodes on a
// circle so repulsion has a direction to work with. Caller holds the lock.
func (h *LayoutHandlers) stateFor(sub *biome.Subsystem) *layoutState {
	st, ok := h.states[sub.Name()]
	if !ok {
		st = &layoutState{}
		h.states[sub.Name()] = st
	}

	for len(st.positions) < sub.QubitCount() {
		i := len(st.positions)
		angle := 2 * math.Pi * float64(i) / float64(sub.QubitCount())
		st.positions = append(st.positions, forcegraph.Vec2{
			X: 50 * math.Cos(angle),
			Y: 50 * math.Sin(angle),
		})
		st.velocities = append(st.velocities, forcegraph.Vec2{})
	}
	return st
}

func (h *LayoutHandlers) subsystemFor(w http.ResponseWriter, r *http.Request) *biome.Subsystem {
	name := chi.URLParam(r, "name")
	for _, sub := range h.batcher.Subsystems() {
		if sub.Name() == name {
			return sub
		}
	}
	http.Error(w, "subsystem not found", http.StatusNotFound)
	return nil
}
