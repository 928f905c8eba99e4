package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prn-tf/reelhub/internal/auth"
	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/metrics"
	"github.com/prn-tf/reelhub/internal/service"
)

// Video update actions accepted by PUT /videos/{id}.
const (
	ActionLike           = "like"
	ActionComment        = "comment"
	ActionUpdateCaptions = "update_captions"
	ActionBookmark       = "bookmark"
)

// VideoHandler serves videos, feeds and engagement.
type VideoHandler struct {
	videos      *service.VideoService
	engagement  *service.EngagementService
	feeds       *service.FeedService
	bookmarks   *service.BookmarkService
	media       *service.MediaService
	metrics     *metrics.Metrics
	paging      config.FeedConfig
	maxBodySize int64
}

// VideoHandlerConfig contains the dependencies of a VideoHandler.
type VideoHandlerConfig struct {
	Videos      *service.VideoService
	Engagement  *service.EngagementService
	Feeds       *service.FeedService
	Bookmarks   *service.BookmarkService
	Media       *service.MediaService
	Metrics     *metrics.Metrics
	Paging      config.FeedConfig
	MaxBodySize int64
}

// NewVideoHandler creates a new VideoHandler. Metrics may be nil.
func NewVideoHandler(cfg VideoHandlerConfig) *VideoHandler {
	return &VideoHandler{
		videos:      cfg.Videos,
		engagement:  cfg.Engagement,
		feeds:       cfg.Feeds,
		bookmarks:   cfg.Bookmarks,
		media:       cfg.Media,
		metrics:     cfg.Metrics,
		paging:      cfg.Paging,
		maxBodySize: cfg.MaxBodySize,
	}
}

// =============================================================================
// Feeds
// =============================================================================

// List handles GET /videos.
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r, h.paging.DefaultLimit, h.paging.MaxLimit, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	videos, err := h.feeds.Global(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// ListByUser handles GET /videos/user/{userId}.
func (h *VideoHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r, h.paging.DefaultLimit, h.paging.MaxLimit, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	videos, err := h.feeds.ByUser(r.Context(), chi.URLParam(r, "userId"), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// Following handles GET /feed/following.
func (h *VideoHandler) Following(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r, h.paging.DefaultLimit, h.paging.MaxLimit, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	videos, err := h.feeds.Following(r.Context(), auth.UserID(r.Context()), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// Bookmarked handles GET /videos/bookmarked.
func (h *VideoHandler) Bookmarked(w http.ResponseWriter, r *http.Request) {
	videos, err := h.bookmarks.Bookmarked(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// =============================================================================
// Videos
// =============================================================================

// Get handles GET /videos/{id}.
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, err := h.videos.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// CreateVideoRequest is the body of POST /videos.
type CreateVideoRequest struct {
	Caption      string              `json:"caption"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	VideoURL     string              `json:"videoUrl"`
	ThumbnailURL string              `json:"thumbnailUrl"`
	Captions     []domain.CaptionCue `json:"captions"`
}

// Create handles POST /videos.
func (h *VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVideoRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	video, err := h.videos.Create(r.Context(), service.CreateVideoInput{
		UserID:       auth.UserID(r.Context()),
		Caption:      req.Caption,
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     req.VideoURL,
		ThumbnailURL: req.ThumbnailURL,
		Captions:     req.Captions,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

// UploadURLRequest is the body of POST /videos/upload-url.
type UploadURLRequest struct {
	ContentType string `json:"contentType"`
	Kind        string `json:"kind"`
}

// UploadURL handles POST /videos/upload-url.
func (h *VideoHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req UploadURLRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	out, err := h.media.UploadURL(r.Context(), service.UploadURLInput{
		UserID:      auth.UserID(r.Context()),
		Kind:        req.Kind,
		ContentType: req.ContentType,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// Engagement
// =============================================================================

// UpdateVideoRequest is the body of PUT /videos/{id}.
type UpdateVideoRequest struct {
	Action   string              `json:"action"`
	Text     string              `json:"text"`
	Captions []domain.CaptionCue `json:"captions"`
}

// LikeResponse is returned by the like action.
type LikeResponse struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// CommentResponse is returned by the comment action.
type CommentResponse struct {
	Comment  *domain.Comment  `json:"comment"`
	Comments []domain.Comment `json:"comments"`
}

// CaptionsResponse is returned by the update_captions action.
type CaptionsResponse struct {
	Captions []domain.CaptionCue `json:"captions"`
}

// BookmarkResponse is returned by the bookmark action.
type BookmarkResponse struct {
	Bookmarked bool `json:"bookmarked"`
}

// Update handles PUT /videos/{id}, dispatching on the action field.
func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateVideoRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	ctx := r.Context()
	videoID := chi.URLParam(r, "id")
	userID := auth.UserID(ctx)

	var (
		payload any
		outcome string
		err     error
	)
	switch req.Action {
	case ActionLike:
		var out *service.ToggleLikeOutput
		if out, err = h.engagement.ToggleLike(ctx, videoID, userID); err == nil {
			payload = LikeResponse{Liked: out.Liked, LikesCount: out.LikesCount}
			outcome = onOff(out.Liked)
		}
	case ActionComment:
		var out *service.AddCommentOutput
		if out, err = h.engagement.AddComment(ctx, videoID, userID, req.Text); err == nil {
			payload = CommentResponse{Comment: out.Comment, Comments: out.Comments}
			outcome = "on"
		}
	case ActionUpdateCaptions:
		var cues []domain.CaptionCue
		if cues, err = h.engagement.ReplaceCaptions(ctx, videoID, userID, req.Captions); err == nil {
			payload = CaptionsResponse{Captions: cues}
			outcome = "on"
		}
	case ActionBookmark:
		var bookmarked bool
		if bookmarked, err = h.engagement.ToggleBookmark(ctx, videoID, userID); err == nil {
			payload = BookmarkResponse{Bookmarked: bookmarked}
			outcome = onOff(bookmarked)
		}
	default:
		writeError(w, http.StatusBadRequest, errUnknownAction.Error())
		return
	}

	if err != nil {
		h.metrics.RecordAction(req.Action, "error")
		writeServiceError(w, r, err)
		return
	}
	h.metrics.RecordAction(req.Action, outcome)
	writeJSON(w, http.StatusOK, payload)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
