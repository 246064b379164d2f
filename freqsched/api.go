package freqsched

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/recrawl/pagedb"
)

// Handler returns the HTTP admin surface of the scheduler:
//
//	POST /request      {"max_requests": n}            → PageRequest
//	POST /pages        CrawledPage JSON               → {"status":"ok"}
//	POST /load/simple  {"freq_default","freq_scale"}  → {"status":"ok"}
//	GET  /dump         text, one schedule entry per line
//	GET  /healthz
func (s *Scheduler) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/request", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			MaxRequests int `json:"max_requests"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if in.MaxRequests < 0 {
			writeError(w, http.StatusBadRequest, errors.New("max_requests must be >= 0"))
			return
		}
		pr, err := s.Request(req.Context(), in.MaxRequests)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, pr)
	})

	r.Post("/pages", func(w http.ResponseWriter, req *http.Request) {
		var page pagedb.CrawledPage
		if err := json.NewDecoder(req.Body).Decode(&page); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if page.URL == "" {
			writeError(w, http.StatusBadRequest, errors.New("url is required"))
			return
		}
		if err := s.Add(req.Context(), &page); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/load/simple", func(w http.ResponseWriter, req *http.Request) {
		var in struct {
			FreqDefault float32 `json:"freq_default"`
			FreqScale   float32 `json:"freq_scale"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.LoadSimple(req.Context(), in.FreqDefault, in.FreqScale); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/dump", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := s.Dump(w); err != nil {
			// Headers are gone; the best we can do is log and cut off.
			s.logger.Error("freqsched: dump", "error", err)
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
