package storage

import (
	"net/url"
	"strings"

	"github.com/prn-tf/reelhub/internal/pkg/crypto"
)

// Kind is the type of media being uploaded.
type Kind string

// Upload kinds.
const (
	KindVideo     Kind = "video"
	KindThumbnail Kind = "thumbnail"
)

// ParseKind validates a kind string. Empty defaults to video.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindVideo, "":
		return KindVideo, nil
	case KindThumbnail:
		return KindThumbnail, nil
	default:
		return "", ErrInvalidKind
	}
}

// ValidateContentType checks that contentType fits the kind.
// Videos take any video/* type; thumbnails are JPEG.
func (k Kind) ValidateContentType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch k {
	case KindVideo:
		if strings.HasPrefix(ct, "video/") {
			return nil
		}
	case KindThumbnail:
		if ct == "image/jpeg" || ct == "image/jpg" {
			return nil
		}
	}
	return ErrInvalidContentType
}

// ObjectKey builds a fresh object key for an upload by userID:
//
//	videos/<userId>/<random>
//	thumbnails/<userId>/<random>.jpg
func ObjectKey(kind Kind, userID string) (string, error) {
	suffix, err := crypto.GenerateObjectKeySuffix()
	if err != nil {
		return "", err
	}
	return objectKey(kind, userID, suffix), nil
}

func objectKey(kind Kind, userID, suffix string) string {
	if kind == KindThumbnail {
		return "thumbnails/" + userID + "/" + suffix + ".jpg"
	}
	return "videos/" + userID + "/" + suffix
}

// JoinURL appends an object key to a base URL, escaping each path segment.
func JoinURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// publicBase picks the base URL objects are served from. Without an explicit
// public base URL it falls back to path-style <endpoint>/<bucket>.
func publicBase(publicBaseURL, endpoint, bucket string, useSSL bool) string {
	if publicBaseURL != "" {
		return publicBaseURL
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	return strings.TrimRight(endpoint, "/") + "/" + bucket
}
