package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	aicentral "github.com/IAprender-dev/Iaprender-sub006"
	"github.com/IAprender-dev/Iaprender-sub006/internal/logging"
	"github.com/IAprender-dev/Iaprender-sub006/providers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxAnalyzeUpload bounds the multipart body of the analyze endpoint. The
// image itself is capped at 5MB by request validation; the extra headroom
// covers multipart framing and the prompt field.
const maxAnalyzeUpload = 6 << 20

// newRouter builds the HTTP surface in front of the gateway.
func newRouter(gw *aicentral.Gateway, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(corsMiddleware(corsOrigins...))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/ai", func(r chi.Router) {
		r.Get("/availability", handleAvailability(gw))
		r.Get("/models", handleModels(gw))

		r.Route("/{provider}", func(r chi.Router) {
			r.Post("/chat", handleChat(gw))
			r.Post("/image", handleImage(gw))
			r.Post("/analyze", handleAnalyze(gw))
			r.Post("/search", handleSearch(gw))
		})
	})

	return r
}

func handleAvailability(gw *aicentral.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, gw.Availability())
	}
}

func handleModels(gw *aicentral.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"providers": gw.Catalog().Descriptors(),
		})
	}
}

type chatRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	System      string   `json:"system,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
}

type chatResponse struct {
	Content     string `json:"content"`
	TokensUsed  int    `json:"tokensUsed"`
	TokensExact bool   `json:"tokensExact"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
}

func handleChat(gw *aicentral.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, providers.Validation("invalid JSON body"))
			return
		}

		req := providers.GenerationRequest{
			Operation:   providers.OpChat,
			Provider:    chi.URLParam(r, "provider"),
			Prompt:      body.Prompt,
			Model:       body.Model,
			System:      body.System,
			Temperature: body.Temperature,
			MaxTokens:   body.MaxTokens,
		}
		req.CallerID, req.ContractID = callerIdentity(r)

		result, err := gw.Handle(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{
			Content:     result.Content,
			TokensUsed:  result.TokensUsed,
			TokensExact: result.TokensExact,
			Provider:    result.Provider,
			Model:       result.Model,
		})
	}
}

type imageRequest struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model,omitempty"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	N       *int   `json:"n,omitempty"`
}

type imageResponse struct {
	Images     []providers.GeneratedImage `json:"images"`
	TokensUsed int                        `json:"tokensUsed"`
	Provider   string                     `json:"provider"`
	Model      string                     `json:"model"`
}

func handleImage(gw *aicentral.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body imageRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, providers.Validation("invalid JSON body"))
			return
		}

		req := providers.GenerationRequest{
			Operation:    providers.OpImage,
			Provider:     chi.URLParam(r, "provider"),
			Prompt:       body.Prompt,
			Model:        body.Model,
			ImageSize:    body.Size,
			ImageQuality: body.Quality,
			ImageCount:   body.N,
		}
		req.CallerID, req.ContractID = callerIdentity(r)

		result, err := gw.Handle(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, imageResponse{
			Images:     result.Images,
			TokensUsed: result.TokensUsed,
			Provider:   result.Provider,
			Model:      result.Model,
		})
	}
}

func handleAnalyze(gw *aicentral.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeUpload)
		if err := r.ParseMultipartForm(maxAnalyzeUpload); err != nil {
			writeError(w, providers.Validation("expected a multipart form with an image part"))
			return
		}

		file, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, providers.Validation("an image part is required"))
			return
		}
		defer func() { _ = file.Close() }()

		attachment, err := io.ReadAll(file)
		if err != nil {
			writeError(w, providers.Validation("could not read the image part"))
			return
		}

		req := providers.GenerationRequest{
			Operation:  providers.OpVisionAnalyze,
			Provider:   chi.URLParam(r, "provider"),
			Prompt:     r.FormValue("prompt"),
			Model:      r.FormValue("model"),
			Attachment: attachment,
		}
		req.CallerID, req.ContractID = callerIdentity(r)

		result, err := gw.Handle(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{
			Content:     result.Content,
			TokensUsed:  result.TokensUsed,
			TokensExact: result.TokensExact,
			Provider:    result.Provider,
			Model:       result.Model,
		})
	}
}

type searchRequest struct {
	Query             string   `json:"query"`
	Model             string   `json:"model,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	MaxTokens         *int     `json:"maxTokens,omitempty"`
	Recency           string   `json:"recency,omitempty"`
	IncludeReferences bool     `json:"includeReferences,omitempty"`
}

type searchResponse struct {
	Content     string   `json:"content"`
	Citations   []string `json:"citations,omitempty"`
	TokensUsed  int      `json:"tokensUsed"`
	TokensExact bool     `json:"tokensExact"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
}

func handleSearch(gw *aicentral.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body searchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, providers.Validation("invalid JSON body"))
			return
		}

		req := providers.GenerationRequest{
			Operation:   providers.OpSearch,
			Provider:    chi.URLParam(r, "provider"),
			Prompt:      body.Query,
			Model:       body.Model,
			Temperature: body.Temperature,
			MaxTokens:   body.MaxTokens,
			Search: providers.SearchOptions{
				Recency:          body.Recency,
				IncludeCitations: body.IncludeReferences,
			},
		}
		req.CallerID, req.ContractID = callerIdentity(r)

		result, err := gw.Handle(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{
			Content:     result.Content,
			Citations:   result.Citations,
			TokensUsed:  result.TokensUsed,
			TokensExact: result.TokensExact,
			Provider:    result.Provider,
			Model:       result.Model,
		})
	}
}

// callerIdentity extracts the caller and billing contract IDs the auth layer
// forwards in headers. Zero values are accepted; the gateway treats them as
// an anonymous caller.
func callerIdentity(r *http.Request) (callerID, contractID int) {
	callerID, _ = strconv.Atoi(r.Header.Get("X-Caller-ID"))
	contractID, _ = strconv.Atoi(r.Header.Get("X-Contract-ID"))
	return callerID, contractID
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the gateway error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := providers.KindUpstream

	var gwErr *providers.Error
	if errors.As(err, &gwErr) {
		kind = gwErr.Kind
	}
	switch kind {
	case providers.KindValidation:
		status = http.StatusBadRequest
	case providers.KindUnsupportedOperation:
		status = http.StatusBadRequest
	case providers.KindServiceUnavailable:
		status = http.StatusServiceUnavailable
	case providers.KindUpstream:
		status = http.StatusBadGateway
	case providers.KindCancelled:
		// Nginx convention for client-closed requests.
		status = 499
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": err.Error(),
			"kind":    string(kind),
		},
	})
}
