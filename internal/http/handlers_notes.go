package http

import (
	"net/http"

	"duoledger/internal/core"
	applog "duoledger/internal/log"
)

type noteRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	snap := s.views.Notes()
	notes := make([]noteJSON, len(snap.Records))
	for i, n := range snap.Records {
		notes[i] = toNoteJSON(n)
	}
	NewJSONResponse().Body(map[string]any{"version": snap.Version, "notes": notes}).Write(w)
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	n, err := s.ledger.AddNote(r.Context(), sanitizeInput(req.Text), core.Person(sanitizeInput(req.Author)))
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toNoteJSON(n)).Write(w)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteNote(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
