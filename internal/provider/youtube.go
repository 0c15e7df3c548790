package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/cliprelay/relay-server-go/internal/model"
)

const youtubeCategoryPeopleBlogs = "22"

// YouTubeUploader publishes a staged file through the YouTube Data API.
type YouTubeUploader struct {
	cfg Config
}

func NewYouTubeUploader(cfg Config) *YouTubeUploader {
	return &YouTubeUploader{cfg: cfg}
}

// Upload sends media and metadata in a single multipart request and returns
// the new video id.
func (u *YouTubeUploader) Upload(ctx context.Context, accessToken string, media io.Reader, meta model.VideoMetadata) (string, error) {
	httpClient := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: u.cfg.UploadTimeout}),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if u.cfg.UploadBaseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimSuffix(u.cfg.UploadBaseURL, "/")+"/"))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create youtube service: %w", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  youtubeCategoryPeopleBlogs,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: string(meta.Visibility),
		},
	}

	resp, err := svc.Videos.
		Insert([]string{"snippet", "status"}, video).
		Media(media, googleapi.ChunkSize(0)).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if resp.Id == "" {
		return "", fmt.Errorf("youtube returned no video id")
	}
	return resp.Id, nil
}
