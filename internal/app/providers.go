package app

import (
	"fmt"
	"strings"

	"github.com/ent0n29/levo/internal/completion"
	"github.com/ent0n29/levo/internal/config"
	"github.com/ent0n29/levo/internal/links"
	"github.com/ent0n29/levo/internal/media"
)

func resolveSearchProvider(cfg config.Config) (links.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.SearchProvider)) {
	case "", "duckduckgo":
		return links.NewDuckDuckGoProvider(), nil
	case "google":
		if cfg.GoogleSearchAPIKey == "" || cfg.GoogleSearchCX == "" {
			return nil, fmt.Errorf("google search requires GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX")
		}
		return links.NewGoogleProvider(cfg.GoogleSearchAPIKey, cfg.GoogleSearchCX), nil
	case "none":
		return links.NopProvider{}, nil
	default:
		return nil, fmt.Errorf("unsupported search provider %q", cfg.SearchProvider)
	}
}

// resolveMediaClients builds the vision client on the chat provider's
// credentials and the image generator on OpenAI's. A missing key leaves the
// client unconfigured, and its routes answer 503.
func resolveMediaClients(cfg config.Config) (*media.Vision, *media.ImageGenerator) {
	var vision *media.Vision
	if strings.TrimSpace(cfg.LLMAPIKey) != "" {
		vision = media.NewVision(completion.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey), cfg.VisionModel, cfg.ProviderTimeout)
	} else {
		vision = media.NewVision(nil, cfg.VisionModel, cfg.ProviderTimeout)
	}

	var images *media.ImageGenerator
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		images = media.NewImageGenerator(completion.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey), cfg.ImageModel, cfg.ImageSize, 2*cfg.ProviderTimeout)
	} else {
		images = media.NewImageGenerator(nil, cfg.ImageModel, cfg.ImageSize, 2*cfg.ProviderTimeout)
	}
	return vision, images
}
