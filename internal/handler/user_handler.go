package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prn-tf/reelhub/internal/auth"
	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/metrics"
	"github.com/prn-tf/reelhub/internal/repository"
	"github.com/prn-tf/reelhub/internal/service"
)

// UserHandler serves profiles, stats and the follow graph.
type UserHandler struct {
	users       *service.UserService
	social      *service.SocialService
	metrics     *metrics.Metrics
	paging      config.FeedConfig
	maxBodySize int64
}

// UserHandlerConfig contains the dependencies of a UserHandler.
type UserHandlerConfig struct {
	Users       *service.UserService
	Social      *service.SocialService
	Metrics     *metrics.Metrics
	Paging      config.FeedConfig
	MaxBodySize int64
}

// NewUserHandler creates a new UserHandler. Metrics may be nil.
func NewUserHandler(cfg UserHandlerConfig) *UserHandler {
	return &UserHandler{
		users:       cfg.Users,
		social:      cfg.Social,
		metrics:     cfg.Metrics,
		paging:      cfg.Paging,
		maxBodySize: cfg.MaxBodySize,
	}
}

// FollowResponse is returned by POST /user/{id}/follow.
type FollowResponse struct {
	IsFollowing    bool `json:"isFollowing"`
	FollowersCount int  `json:"followersCount"`
	FollowingCount int  `json:"followingCount"`
}

// Follow handles POST /user/{id}/follow, toggling the edge from the caller.
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	actorID := auth.UserID(r.Context())

	if actorID == targetID {
		writeError(w, http.StatusBadRequest, domain.ErrSelfFollow.Error())
		return
	}

	out, err := h.social.ToggleFollow(r.Context(), actorID, targetID)
	if err != nil {
		h.metrics.RecordAction("follow", "error")
		writeServiceError(w, r, err)
		return
	}
	h.metrics.RecordAction("follow", onOff(out.Following))

	writeJSON(w, http.StatusOK, FollowResponse{
		IsFollowing:    out.Following,
		FollowersCount: out.FollowersCount,
		FollowingCount: out.FollowingCount,
	})
}

// Profile handles GET /user/{id}.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Followers handles GET /user/{id}/followers.
func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listEdges(w, r, h.social.ListFollowers)
}

// Following handles GET /user/{id}/following.
func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	h.listEdges(w, r, h.social.ListFollowing)
}

func (h *UserHandler) listEdges(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Profile, error)) {
	opts, err := parseListOptions(r, h.paging.FollowsPageLimit, h.paging.FollowsMaxLimit, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	profiles, err := list(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// Me handles GET /user/profile, returning the caller's full account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileRequest is the body of PUT /user/profile. Omitted fields are kept.
type UpdateProfileRequest struct {
	Username       *string `json:"username"`
	ProfilePicture *string `json:"profilePicture"`
	Bio            *string `json:"bio"`
}

// UpdateMe handles PUT /user/profile.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), service.UpdateProfileInput{
		UserID:         auth.UserID(r.Context()),
		Username:       req.Username,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Stats handles GET /user/stats.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
