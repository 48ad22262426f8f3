package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leofalp/aichat/core/chat"
	"github.com/leofalp/aichat/providers/memory"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Handler serves one chat session.
type Handler struct {
	session   *chat.Session
	providers []string
	logger    *slog.Logger
}

// NewHandler creates a handler for session. providers fills the selector in
// the given order. A nil logger falls back to slog.Default().
func NewHandler(session *chat.Session, providers []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session:   session,
		providers: slices.Clone(providers),
		logger:    logger,
	}
}

// RegisterRoutes mounts the page, the form targets and the theme toggle.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/send", h.Send)
	r.Get("/edit/{index}", h.EditForm)
	r.Post("/toggle_theme", h.ToggleTheme)
}

type pageData struct {
	Providers []string
	Provider  string
	DarkMode  bool
	Rows      []memory.Row
	EditIndex string
	EditText  string
}

// Index renders the transcript with an empty form.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "", "")
}

// EditForm renders the page with the form pre-filled from the user message
// at {index}. Anything else redirects to the plain page.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	message, err := h.session.EditableMessage(r.Context(), index)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, strconv.Itoa(index), message.Content)
}

// Send appends the posted message, or replaces the one named by edit_index,
// and waits for the provider's answer before redirecting back to the page.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	message, ok := r.PostForm["message"]
	if !ok || len(message) == 0 || message[0] == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	content := message[0]
	provider := r.PostForm.Get("provider")
	editIndex := strings.TrimSpace(r.PostForm.Get("edit_index"))

	var err error
	if editIndex != "" {
		index, convErr := strconv.Atoi(editIndex)
		if convErr != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		_, err = h.session.Edit(r.Context(), provider, index, content)
	} else {
		_, err = h.session.Send(r.Context(), provider, content)
	}

	switch {
	case errors.Is(err, memory.ErrInvalidIndex), errors.Is(err, memory.ErrNotEditable):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Provider call failed",
			"session", h.session.ID(),
			"provider", h.session.Provider(),
			"error", err,
		)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// ToggleTheme flips dark mode.
func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	dark := h.session.ToggleTheme()
	h.logger.DebugContext(r.Context(), "Theme toggled", "dark_mode", dark)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, editIndex, editText string) {
	data := pageData{
		Providers: h.providers,
		Provider:  h.session.Provider(),
		DarkMode:  h.session.DarkMode(),
		Rows:      slices.Collect(h.session.Rows(r.Context())),
		EditIndex: editIndex,
		EditText:  editText,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
