package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "ragchat_session"

// maxPromptBytes caps the size of a submitted form.
const maxPromptBytes = 64 << 10

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").
	Funcs(template.FuncMap{"nl2br": nl2br}).
	ParseFS(templateFS, "templates/index.html"))

// nl2br escapes s and turns newlines into line breaks.
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// Answerer answers a single question.
type Answerer interface {
	Answer(ctx context.Context, question string) (*domain.AnswerResult, error)
}

// IndexStatus reports on the current vector index.
type IndexStatus interface {
	Stats() (domain.IndexStats, error)
}

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	answerer   Answerer
	index      IndexStatus
	sessions   port.SessionStore
	sessionTTL time.Duration
}

func NewHandler(answerer Answerer, index IndexStatus, sessions port.SessionStore, sessionTTL time.Duration) *Handler {
	return &Handler{
		answerer:   answerer,
		index:      index,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

type pageData struct {
	Messages []domain.Message
	Error    string
}

// HandleIndex handles GET and POST /.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	id := h.session(w, r)

	if r.Method != http.MethodPost {
		h.render(w, http.StatusOK, pageData{Messages: h.sessions.Messages(id)})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPromptBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, pageData{
			Messages: h.sessions.Messages(id),
			Error:    "Error : " + err.Error(),
		})
		return
	}

	prompt := r.PostFormValue("prompt")
	if strings.TrimSpace(prompt) != "" {
		h.sessions.Append(id, domain.Message{Role: domain.RoleUser, Content: prompt})

		result, err := h.answerer.Answer(r.Context(), prompt)
		if err != nil {
			logger.Error("answer failed", "err", err)
			h.render(w, statusFor(err), pageData{
				Messages: h.sessions.Messages(id),
				Error:    "Error : " + err.Error(),
			})
			return
		}

		h.sessions.Append(id, domain.Message{Role: domain.RoleAssistant, Content: result.Answer})
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleClear handles GET /clear.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		h.sessions.Clear(c.Value)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type healthResponse struct {
	Status string       `json:"status"`
	Index  *indexHealth `json:"index"`
}

type indexHealth struct {
	Available bool      `json:"available"`
	Chunks    int       `json:"chunks,omitempty"`
	Sources   int       `json:"sources,omitempty"`
	Model     string    `json:"model,omitempty"`
	BuiltAt   time.Time `json:"built_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Index: &indexHealth{}}
	status := http.StatusOK

	stats, err := h.index.Stats()
	if err != nil {
		resp.Status = "unavailable"
		resp.Index.Error = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		resp.Index.Available = true
		resp.Index.Chunks = stats.Chunks
		resp.Index.Sources = stats.Sources
		resp.Index.Model = stats.Model
		resp.Index.BuiltAt = stats.BuiltAt
	}

	sendJSON(w, status, resp)
}

// session returns the caller's session ID, starting a new session when the
// cookie is missing or refers to an expired one.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && h.sessions.Exists(c.Value) {
		return c.Value
	}

	id := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		logger.Error("render page", "err", err)
	}
}

// statusFor maps an answer error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIndexUnavailable), errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrProvider), errors.Is(err, domain.ErrAuthentication):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}
