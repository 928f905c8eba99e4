package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/reelhub/internal/domain"
)

func TestVideoService_Create(t *testing.T) {
	users := NewMockUserRepository()
	videos := NewMockVideoRepository()
	svc := NewVideoService(users, videos, nil, zerolog.Nop())
	ctx := context.Background()

	owner := users.add(newTestUser("owner", time.Hour))

	tests := []struct {
		name        string
		input       CreateVideoInput
		wantCaption string
		wantErr     error
	}{
		{
			name:        "explicit caption wins",
			input:       CreateVideoInput{Caption: " hi ", Title: "T", Description: "D", VideoURL: "https://cdn/v.mp4"},
			wantCaption: "hi",
		},
		{
			name:        "title and description",
			input:       CreateVideoInput{Title: "Trip", Description: "Day one", VideoURL: "https://cdn/v.mp4"},
			wantCaption: "Trip\n\nDay one",
		},
		{
			name:        "no caption at all",
			input:       CreateVideoInput{VideoURL: "https://cdn/v.mp4"},
			wantCaption: "",
		},
		{
			name:    "missing url",
			input:   CreateVideoInput{Caption: "x", VideoURL: "  "},
			wantErr: domain.ErrVideoURLRequired,
		},
		{
			name:    "caption too long",
			input:   CreateVideoInput{Caption: strings.Repeat("a", domain.CaptionMaxLength+1), VideoURL: "https://cdn/v.mp4"},
			wantErr: domain.ErrCaptionTooLong,
		},
		{
			name:    "joined caption too long",
			input:   CreateVideoInput{Title: strings.Repeat("a", 1000), Description: strings.Repeat("b", 1000), VideoURL: "https://cdn/v.mp4"},
			wantErr: domain.ErrCaptionTooLong,
		},
		{
			name: "bad cue",
			input: CreateVideoInput{
				VideoURL: "https://cdn/v.mp4",
				Captions: []domain.CaptionCue{{Text: "", StartTime: 0, EndTime: 1}},
			},
			wantErr: domain.ErrInvalidCaption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.UserID = owner.ID
			video, err := svc.Create(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCaption, video.Caption)
			assert.Equal(t, owner.ID, video.UserID)
			assert.Equal(t, owner.Email, video.UserEmail)
			assert.Equal(t, owner.Username, video.Username)

			stored, err := svc.Get(ctx, video.ID)
			require.NoError(t, err)
			assert.Equal(t, video.Caption, stored.Caption)
		})
	}
}

func TestVideoService_CreateWithCaptions(t *testing.T) {
	users := NewMockUserRepository()
	videos := NewMockVideoRepository()
	svc := NewVideoService(users, videos, nil, zerolog.Nop())
	owner := users.add(newTestUser("owner", time.Hour))

	cues := []domain.CaptionCue{{Text: "hey", StartTime: 0, EndTime: 2}}
	video, err := svc.Create(context.Background(), CreateVideoInput{UserID: owner.ID, VideoURL: "https://cdn/v.mp4", Captions: cues})
	require.NoError(t, err)
	assert.Equal(t, cues, video.Captions)
	assert.Empty(t, video.Likes)
}

func TestVideoService_Errors(t *testing.T) {
	users := NewMockUserRepository()
	videos := NewMockVideoRepository()
	svc := NewVideoService(users, videos, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateVideoInput{UserID: "ghost", VideoURL: "https://cdn/v.mp4"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrVideoNotFound)

	videos.getErr = errors.New("connection reset")
	_, err = svc.Get(ctx, "any")
	assert.ErrorIs(t, err, ErrInternalError)
}
