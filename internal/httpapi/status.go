package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/ent0n29/levo/internal/memory"
)

type statusCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type statusResponse struct {
	LLMMode        string        `json:"llm_mode"`
	MemoryBackend  string        `json:"memory_backend"`
	SearchProvider string        `json:"search_provider"`
	Checks         []statusCheck `json:"checks"`
}

// handleStatus reports which optional integrations are configured and how
// to enable the missing ones.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	backend := memory.Backend(s.cfg.DatabaseURL)
	checks := make([]statusCheck, 0, 6)
	checks = append(checks, s.llmCheck())
	checks = append(checks, memoryCheck(backend))

	switch s.cfg.SearchProvider {
	case "none":
		checks = append(checks, statusCheck{
			ID:     "search_provider",
			Status: "warn",
			Label:  "Link lookups",
			Detail: "disabled",
			Fix:    "Set SEARCH_PROVIDER=duckduckgo or google.",
		})
	default:
		checks = append(checks, statusCheck{
			ID:     "search_provider",
			Status: "ok",
			Label:  "Link lookups",
			Detail: s.cfg.SearchProvider,
		})
	}

	checks = append(checks, keyCheck("news_key", "News headlines", s.cfg.NewsAPIKey, "NEWS_API_KEY"))
	checks = append(checks, keyCheck("openai_key", "Image generation", s.cfg.OpenAIAPIKey, "OPENAI_API_KEY"))
	checks = append(checks, filesCheck(s.cfg.FilesDir))

	respondJSON(w, http.StatusOK, statusResponse{
		LLMMode:        s.deps.LLMMode,
		MemoryBackend:  backend,
		SearchProvider: s.cfg.SearchProvider,
		Checks:         checks,
	})
}

func (s *Server) llmCheck() statusCheck {
	if s.deps.LLMMode == "mock" {
		return statusCheck{
			ID:     "llm_provider",
			Status: "warn",
			Label:  "Language model",
			Detail: "mock replies only",
			Fix:    "Set GROQ_API_KEY to talk to a real model.",
		}
	}
	return statusCheck{ID: "llm_provider", Status: "ok", Label: "Language model", Detail: s.cfg.LLMModel}
}

func memoryCheck(backend string) statusCheck {
	switch backend {
	case "":
		return statusCheck{
			ID:     "memory_backend",
			Status: "error",
			Label:  "Conversation memory",
			Detail: "unsupported DATABASE_URL",
			Fix:    "Use memory://, sqlite://, postgres://, redis:// or badger://.",
		}
	case "memory":
		return statusCheck{
			ID:     "memory_backend",
			Status: "warn",
			Label:  "Conversation memory",
			Detail: "in-process only, lost on restart",
			Fix:    "Set DATABASE_URL to a persistent backend.",
		}
	default:
		return statusCheck{ID: "memory_backend", Status: "ok", Label: "Conversation memory", Detail: backend}
	}
}

func keyCheck(id, label, value, env string) statusCheck {
	if strings.TrimSpace(value) == "" {
		return statusCheck{
			ID:     id,
			Status: "warn",
			Label:  label,
			Detail: env + " is not set",
			Fix:    "Set " + env + " to enable this feature.",
		}
	}
	return statusCheck{ID: id, Status: "ok", Label: label, Detail: "present"}
}

func filesCheck(dir string) statusCheck {
	if strings.TrimSpace(dir) == "" {
		return statusCheck{ID: "files_dir", Status: "error", Label: "Document exports", Detail: "FILES_DIR is empty", Fix: "Set FILES_DIR."}
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return statusCheck{
			ID:     "files_dir",
			Status: "error",
			Label:  "Document exports",
			Detail: err.Error(),
			Fix:    "Make FILES_DIR writable by the service.",
		}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return statusCheck{ID: "files_dir", Status: "ok", Label: "Document exports", Detail: dir}
}
