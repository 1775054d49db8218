package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/signalrelay/authgate/api/transport"
	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/internal/middleware"
	"github.com/signalrelay/authgate/pkg/httpcontext"
)

// ProfileService is implemented by the profile use case.
type ProfileService interface {
	GetOrCreate(ctx context.Context, userID, email string) (*domain.Profile, error)
	Update(ctx context.Context, userID, email string, patch domain.Patch) (*domain.Profile, error)
}

type ProfileHandler struct {
	baseHandler
	uc ProfileService
}

func NewProfileHandler(uc ProfileService, adapter *httpcontext.Adapter, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// GetProfile returns the caller's profile, creating the default record on
// first read.
func (h *ProfileHandler) GetProfile(ctx *fasthttp.RequestCtx) {
	userID, email, ok := h.callerIdentity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	profile, err := h.uc.GetOrCreate(stdCtx, userID, email)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, profile)
}

// UpdateProfile merges the partial body over the stored record. id and email
// come from the validated token, never from the payload.
func (h *ProfileHandler) UpdateProfile(ctx *fasthttp.RequestCtx) {
	userID, email, ok := h.callerIdentity(ctx)
	if !ok {
		return
	}

	var req transport.ProfileUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.ErrorResponse{Error: "invalid payload"})
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.Update(stdCtx, userID, email, req.Patch())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.UpdateResponse{Success: true, Profile: updated})
}

func (h *ProfileHandler) callerIdentity(ctx *fasthttp.RequestCtx) (string, string, bool) {
	userID := string(ctx.Request.Header.Peek(middleware.HeaderUserID))
	email := string(ctx.Request.Header.Peek(middleware.HeaderUserEmail))
	if userID == "" {
		h.respondJSON(ctx, http.StatusUnauthorized, transport.ErrorResponse{Error: "missing bearer token"})
		return "", "", false
	}
	return userID, email, true
}
