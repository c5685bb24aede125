package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dudecon/SpaceWheat-sub021/internal/biome"
	"github.com/dudecon/SpaceWheat-sub021/internal/scheduler"
)

type subsystemSummary struct {
	Name      string  `json:"name"`
	Dimension int     `json:"dimension"`
	Qubits    int     `json:"qubits"`
	Trace     float64 `json:"trace"`
	Purity    float64 `json:"purity"`
}

type pairProbability struct {
	LabelA      string  `json:"label_a"`
	LabelB      string  `json:"label_b"`
	Qubit       int     `json:"qubit"`
	Active      bool    `json:"active"`
	Probability float64 `json:"probability"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleBackend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.selection)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"fallback": s.batcher.Fallback(),
		"ticks":    s.batcher.Stats(),
	})
}

func (s *Server) handleListSubsystems(w http.ResponseWriter, r *http.Request) {
	subs := s.batcher.Subsystems()
	out := make([]subsystemSummary, len(subs))
	for i, sub := range subs {
		out[i] = summarize(sub)
	}
	writeJSON(w, out)
}

func (s *Server) handleSubsystem(w http.ResponseWriter, r *http.Request) {
	sub := s.findSubsystem(w, r)
	if sub == nil {
		return
	}

	pairs := sub.Registers().Pairs()
	registers := make([]map[string]interface{}, len(pairs))
	for i, p := range pairs {
		registers[i] = map[string]interface{}{
			"label_a": p.A,
			"label_b": p.B,
			"index":   i,
			"active":  sub.IsActive(p.A, p.B),
		}
	}

	writeJSON(w, map[string]interface{}{
		"summary":   summarize(sub),
		"registers": registers,
	})
}

func (s *Server) handleProbabilities(w http.ResponseWriter, r *http.Request) {
	sub := s.findSubsystem(w, r)
	if sub == nil {
		return
	}

	pairs := sub.Registers().Pairs()
	out := make([]pairProbability, 0, len(pairs))
	for i, p := range pairs {
		prob, err := sub.Probability(p.A, p.B)
		if err != nil {
			s.log.Error().Err(err).Str("biome", sub.Name()).Msg("Failed to compute probability")
			http.Error(w, "failed to compute probability", http.StatusInternalServerError)
			return
		}
		out = append(out, pairProbability{
			LabelA:      p.A,
			LabelB:      p.B,
			Qubit:       i,
			Active:      sub.IsActive(p.A, p.B),
			Probability: prob,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleMutualInformation(w http.ResponseWriter, r *http.Request) {
	sub := s.findSubsystem(w, r)
	if sub == nil {
		return
	}

	mi, err := sub.MutualInformation()
	if err != nil {
		s.log.Error().Err(err).Str("biome", sub.Name()).Msg("Failed to compute mutual information")
		http.Error(w, "failed to compute mutual information", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"qubits": sub.QubitCount(),
		"mi":     mi,
	})
}

func (s *Server) handleBlochPacket(w http.ResponseWriter, r *http.Request) {
	sub := s.findSubsystem(w, r)
	if sub == nil {
		return
	}

	bloch, err := sub.BlochPacket()
	if err != nil {
		s.log.Error().Err(err).Str("biome", sub.Name()).Msg("Failed to compute Bloch packet")
		http.Error(w, "failed to compute bloch packet", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"qubits": sub.QubitCount(),
		"bloch":  bloch,
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Save(s.batcher.Subsystems()); err != nil {
		s.log.Error().Err(err).Msg("Save failed")
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"saved": len(s.batcher.Subsystems()),
	})
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list saves")
		http.Error(w, "failed to list saves", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"subsystems": names})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	if s.backup == nil {
		http.Error(w, "backup not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()
	if err := s.backup.Upload(ctx); err != nil {
		s.log.Error().Err(err).Msg("Backup failed")
		http.Error(w, "backup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "uploaded"})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"jobs": s.scheduler.Jobs()})
}

// handleRunJob triggers a registered maintenance job outside its schedule,
// for operators who want a save or backup right now.
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.scheduler.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		http.Error(w, "job failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"job": name, "status": "completed"})
}

// findSubsystem resolves the {name} URL parameter, writing a 404 on miss.
func (s *Server) findSubsystem(w http.ResponseWriter, r *http.Request) *biome.Subsystem {
	name := chi.URLParam(r, "name")
	for _, sub := range s.batcher.Subsystems() {
		if sub.Name() == name {
			return sub
		}
	}
	http.Error(w, "subsystem not found", http.StatusNotFound)
	return nil
}

func summarize(sub *biome.Subsystem) subsystemSummary {
	rho := sub.Rho()
	return subsystemSummary{
		Name:      sub.Name(),
		Dimension: sub.Dimension(),
		Qubits:    sub.QubitCount(),
		Trace:     real(rho.Trace()),
		Purity:    rho.Purity(),
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
