package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/signalrelay/authgate/api/transport"
	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/pkg/httpcontext"
)

// SignupService is implemented by the signup use case.
type SignupService interface {
	Signup(ctx context.Context, email, password, name string, plan domain.Plan) (string, error)
}

type SignupHandler struct {
	baseHandler
	uc SignupService
}

func NewSignupHandler(uc SignupService, adapter *httpcontext.Adapter, logger *zap.Logger) *SignupHandler {
	return &SignupHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// Signup provisions the identity-provider account and the profile record.
func (h *SignupHandler) Signup(ctx *fasthttp.RequestCtx) {
	var req transport.SignupRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.ErrorResponse{Error: "invalid payload"})
		return
	}
	if req.Email == "" || req.Password == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.ErrorResponse{Error: "email and password are required"})
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	userID, err := h.uc.Signup(stdCtx, req.Email, req.Password, req.Name, req.Plan)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusCreated, transport.SignupResponse{Success: true, UserID: userID})
}
