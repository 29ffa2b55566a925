package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/matzehuels/techtree/pkg/buildinfo"
	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/layout"
	"github.com/matzehuels/techtree/pkg/pipeline"
	"github.com/matzehuels/techtree/pkg/research"
	"github.com/matzehuels/techtree/pkg/save"
	"github.com/matzehuels/techtree/pkg/techdata"
)

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.health)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/techs", s.techs)
		r.Get("/layout", s.layout)
		r.Get("/render.{format}", s.render)

		r.Route("/saves", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.listSaves)
			r.Post("/", s.createSave)
			r.Get("/{id}", s.getSave)
			r.Delete("/{id}", s.deleteSave)
			r.Post("/{id}/unlock/{tech}", s.unlock)
			r.Post("/{id}/research/{tech}", s.research)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no route for %s", r.URL.Path))
	})
	return r
}

// ----- Health -----

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
	Techs  int            `json:"techs"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Build:  buildinfo.Get(),
		Techs:  s.Table().Len(),
	})
}

// ----- Tech table and layout -----

func (s *Server) techs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Table().File())
}

func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	t := s.Table()
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Layout(r.Context(), t, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layout.Export(t, res))
}

// render draws the layout. With ?save=<id> techs are drawn against that
// save's research state.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	t := s.Table()
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	formats, err := pipeline.ParseFormats([]string{chi.URLParam(r, "format")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := formats[0]
	opts.Formats = []string{string(format)}

	if id := r.URL.Query().Get("save"); id != "" {
		if s.store == nil {
			s.writeError(w, r, errNoStore())
			return
		}
		sv, err := s.store.Load(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		opts.Research = &sv.Research
	}

	res, err := s.runner.Layout(r.Context(), t, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), t, res, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[string(format)])
}

// options reads the viewport and render query parameters.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{Logger: s.logger}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
		{"offset", &opts.Offset},
		{"scale", &opts.Scale},
	}
	for _, f := range floats {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return opts, errors.New(errors.ErrCodeInvalidInput, "%s must be a non-negative number, got %q", f.name, v)
		}
		*f.dst = n
	}
	if v := q.Get("viewport"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "viewport must be a boolean, got %q", v)
		}
		opts.Viewport = b
	}
	return opts, nil
}

// ----- Saves -----

// CreateSaveRequest is the body of POST /api/saves.
type CreateSaveRequest struct {
	Name string `json:"name"`
}

// SaveResponse is a save with its research state resolved against the
// current tech table.
type SaveResponse struct {
	*save.Save
	Available []string `json:"available"`
}

func errNoStore() error {
	return errors.New(errors.ErrCodeUnsupported, "saves are not configured")
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			s.writeError(w, r, errNoStore())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) saveResponse(sv *save.Save) SaveResponse {
	return SaveResponse{Save: sv, Available: sv.Research.Available(s.Table())}
}

func (s *Server) listSaves(w http.ResponseWriter, r *http.Request) {
	saves, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if saves == nil {
		saves = []save.Save{}
	}
	writeJSON(w, http.StatusOK, saves)
}

func (s *Server) createSave(w http.ResponseWriter, r *http.Request) {
	var req CreateSaveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
			return
		}
	}
	sv, err := s.store.Create(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sv)
}

func (s *Server) getSave(w http.ResponseWriter, r *http.Request) {
	sv, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.saveResponse(sv))
}

func (s *Server) deleteSave(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unlock(w http.ResponseWriter, r *http.Request) {
	s.advance(w, r, research.State.Unlock)
}

func (s *Server) research(w http.ResponseWriter, r *http.Request) {
	s.advance(w, r, research.State.StartResearch)
}

// advance applies a research transition to a save and persists it.
func (s *Server) advance(w http.ResponseWriter, r *http.Request, step func(research.State, *techdata.Table, string) (research.State, error)) {
	ctx := r.Context()
	sv, err := s.store.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	next, err := step(sv.Research, s.Table(), chi.URLParam(r, "tech"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sv, err = s.store.UpdateResearch(ctx, sv.ID, next)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.saveResponse(sv))
}
