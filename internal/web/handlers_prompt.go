package web

import (
	"net/http"

	"github.com/runixer/trendstudio/internal/prompt"
)

type textRequest struct {
	Text string `json:"text"`
}

type textResponse struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Scene             string            `json:"scene"`
	Style             prompt.StyleValue `json:"style"`
	Avoid             string            `json:"avoid"`
	Composition       string            `json:"composition"`
	StyleParsedAsJSON bool              `json:"style_parsed_as_json"`
	Marked            bool              `json:"marked"`
}

// buildRequest accepts style either as a string or as a JSON object.
type buildRequest struct {
	Scene       string            `json:"scene"`
	Style       prompt.StyleValue `json:"style"`
	Avoid       string            `json:"avoid"`
	Composition string            `json:"composition"`
}

type sectionsPayload struct {
	Sections []prompt.Section `json:"sections"`
}

type substituteRequest struct {
	Content string `json:"content"`
	// Variables overrides the master variables when present.
	Variables map[string]string `json:"variables"`
}

type substituteResponse struct {
	Content    string   `json:"content"`
	Unresolved []string `json:"unresolved"`
}

func (s *Server) parsePromptHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[textRequest](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	b := prompt.Parse(req.Text)
	writeJSON(w, http.StatusOK, parseResponse{
		Scene:             b.Scene,
		Style:             b.Style,
		Avoid:             b.Avoid,
		Composition:       b.Composition,
		StyleParsedAsJSON: b.StyleParsedAsJSON(),
		Marked:            b.Marked,
	})
}

func (s *Server) buildPromptHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[buildRequest](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, textResponse{
		Text: prompt.Build(req.Scene, req.Style.String(), req.Avoid, req.Composition),
	})
}

func (s *Server) flattenSectionsHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sectionsPayload](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: prompt.SectionsToFlatText(req.Sections)})
}

func (s *Server) splitPromptHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[textRequest](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sectionsPayload{Sections: prompt.FlatTextToSections(req.Text)})
}

func (s *Server) substituteHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[substituteRequest](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}

	vars := req.Variables
	if vars == nil {
		master, err := s.vars.GetVariables()
		if err != nil {
			writeInternalError(w, s.logger, "failed to load variables", err)
			return
		}
		vars = master
	}

	content := prompt.Substitute(req.Content, vars)
	unresolved := prompt.Unresolved(req.Content, vars)
	if unresolved == nil {
		unresolved = []string{}
	}
	writeJSON(w, http.StatusOK, substituteResponse{Content: content, Unresolved: unresolved})
}
