package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/eugenenazirov/config-server/internal/merge"
	"github.com/eugenenazirov/config-server/internal/resolver"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const contentTypeCBOR = "application/cbor"

// ConfigResolver resolves the merged configuration of one scope.
type ConfigResolver interface {
	Resolve(ctx context.Context, application, label string) (merge.Resolved, error)
}

// Handler wires the configuration resolver into HTTP handlers.
type Handler struct {
	resolver ConfigResolver
	logger   *zap.Logger
	cbor     cbor.EncMode

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(res ConfigResolver, logger *zap.Logger, opts ...HandlerOption) (*Handler, error) {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("build CBOR encoder: %w", err)
	}

	h := &Handler{
		resolver: res,
		logger:   logger,
		cbor:     encMode,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetConfig serves GET /configs/{application}/{label}. Failures are
// logged and answered with an empty body.
func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	application, appErr := url.PathUnescape(chi.URLParam(r, "application"))
	label, labelErr := url.PathUnescape(chi.URLParam(r, "label"))
	log := h.logger.With(
		zap.String("request_id", requestIDFromContext(r.Context())),
		zap.String("application", application),
		zap.String("label", label),
	)

	if err := errors.Join(appErr, labelErr); err != nil {
		log.Warn("malformed path parameters", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resolved, err := h.resolver.Resolve(r.Context(), application, label)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadRequest {
			log.Warn("rejected configuration scope", zap.Error(err))
		} else {
			log.Error("error getting config", zap.Error(err))
		}
		w.WriteHeader(status)
		return
	}

	body, contentType, err := h.encode(resolved, r.Header.Get("Accept"))
	if err != nil {
		log.Error("error encoding config", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	etag := computeETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Vary", "Accept")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) encode(resolved merge.Resolved, accept string) ([]byte, string, error) {
	if strings.Contains(accept, contentTypeCBOR) {
		body, err := h.cbor.Marshal(resolved)
		return body, contentTypeCBOR, err
	}
	body, err := json.Marshal(resolved)
	return body, "application/json", err
}

func statusFor(err error) int {
	if errors.Is(err, resolver.ErrInvalidScope) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func computeETag(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}
