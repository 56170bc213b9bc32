package handlers

import "net/http"

// BuildInfo identifies the running build.
type BuildInfo struct {
	Version string `json:"version"`
	Name    string `json:"name"`
}

// InfoResponse is the payload of /info and /actuator/info.
type InfoResponse struct {
	Build BuildInfo `json:"build"`
}

// InfoHandler reports the application name and version.
type InfoHandler struct {
	info InfoResponse
}

// NewInfoHandler creates a new InfoHandler.
func NewInfoHandler(name, version string) *InfoHandler {
	return &InfoHandler{info: InfoResponse{Build: BuildInfo{Version: version, Name: name}}}
}

func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.info)
}
