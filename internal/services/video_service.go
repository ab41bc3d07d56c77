package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/video-service/internal/events"
	"github.com/fathima-sithara/video-service/internal/metrics"
	"github.com/fathima-sithara/video-service/internal/models"
	"github.com/fathima-sithara/video-service/internal/repository"
	"github.com/fathima-sithara/video-service/internal/storage"
	"github.com/fathima-sithara/video-service/internal/thumbnails"
	"github.com/fathima-sithara/video-service/internal/utils"
)

const (
	DefaultThumbnailMaxBytes = 10 << 20
	DefaultVideoMaxBytes     = 1 << 30
	DefaultPresignTTL        = 10 * time.Minute
	DefaultPublishTimeout    = 5 * time.Second

	VideoMediaType = "video/mp4"
)

type Options struct {
	ThumbnailMaxBytes int64
	VideoMaxBytes     int64
	// PublicBaseURL is where this process is reachable, e.g. http://localhost:8091.
	PublicBaseURL string
	AssetsRoot    string
	PresignTTL    time.Duration
	// PublishTimeout bounds each background event publish.
	PublishTimeout time.Duration
}

// Upload is one file part taken from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type VideoService struct {
	repo   repository.VideoRepository
	thumbs *thumbnails.Registry
	store  storage.ObjectStore
	events events.Publisher
	log    *zap.SugaredLogger
	opts   Options

	inflight sync.WaitGroup
}

func NewVideoService(repo repository.VideoRepository, thumbs *thumbnails.Registry, store storage.ObjectStore,
	pub events.Publisher, logger *zap.SugaredLogger, opts Options) *VideoService {
	if opts.ThumbnailMaxBytes <= 0 {
		opts.ThumbnailMaxBytes = DefaultThumbnailMaxBytes
	}
	if opts.VideoMaxBytes <= 0 {
		opts.VideoMaxBytes = DefaultVideoMaxBytes
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = DefaultPresignTTL
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	if opts.AssetsRoot == "" {
		opts.AssetsRoot = os.TempDir()
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &VideoService{repo: repo, thumbs: thumbs, store: store, events: pub, log: logger, opts: opts}
}

// Authorize loads the video and checks that userID owns it. It runs before
// any payload is looked at, so a non-owner is always refused with Forbidden.
func (s *VideoService) Authorize(ctx context.Context, videoID, userID string) (*models.Video, error) {
	if videoID == "" {
		return nil, utils.BadRequest("invalid video id")
	}
	v, err := s.lookup(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, utils.Forbidden("not the owner of this video")
	}
	return v, nil
}

func (s *VideoService) lookup(ctx context.Context, videoID string) (*models.Video, error) {
	v, err := s.repo.GetByID(ctx, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFound("video not found")
	}
	if err != nil {
		return nil, utils.Internal("couldn't fetch video", err)
	}
	return v, nil
}

// UploadThumbnail keeps the image in the in-memory registry and points the
// record's thumbnail URL at this process. The part's declared media type is
// stored as is; when the part declares none, the type is sniffed from the
// bytes instead of storing an empty one.
func (s *VideoService) UploadThumbnail(ctx context.Context, v *models.Video, up Upload) (_ *models.Video, err error) {
	defer observe("thumbnail", &err)

	if up.Size > s.opts.ThumbnailMaxBytes {
		return nil, utils.BadRequest("thumbnail exceeds upload limit")
	}
	data, err := io.ReadAll(io.LimitReader(up.Body, s.opts.ThumbnailMaxBytes+1))
	if err != nil {
		return nil, utils.NewError(utils.ErrBadRequest, "couldn't read thumbnail", err)
	}
	if int64(len(data)) > s.opts.ThumbnailMaxBytes {
		return nil, utils.BadRequest("thumbnail exceeds upload limit")
	}

	mediaType := up.ContentType
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}

	s.thumbs.Set(v.ID, thumbnails.Thumbnail{Data: data, MediaType: mediaType})
	metrics.ThumbnailEntries.Set(float64(s.thumbs.Len()))

	thumbURL := fmt.Sprintf("%s/api/thumbnails/%s", s.opts.PublicBaseURL, url.PathEscape(v.ID))
	v.ThumbnailURL = &thumbURL
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, utils.Internal("couldn't update video", err)
	}

	metrics.UploadBytes.WithLabelValues("thumbnail").Add(float64(len(data)))
	s.publish(ctx, events.Event{
		Type: events.ThumbnailUploaded, VideoID: v.ID, UserID: v.UserID,
		URL: thumbURL, Size: int64(len(data)), At: time.Now().UTC(),
	})
	return v, nil
}

// GetThumbnail returns the stored thumbnail. The record must exist and the
// registry must hold an entry; the record's thumbnail URL is not consulted.
func (s *VideoService) GetThumbnail(ctx context.Context, videoID string) (thumbnails.Thumbnail, error) {
	if videoID == "" {
		return thumbnails.Thumbnail{}, utils.BadRequest("invalid video id")
	}
	if _, err := s.lookup(ctx, videoID); err != nil {
		return thumbnails.Thumbnail{}, err
	}
	t, ok := s.thumbs.Get(videoID)
	if !ok {
		return thumbnails.Thumbnail{}, utils.NotFound("thumbnail not found")
	}
	return t, nil
}

// UploadVideo stages the file on disk, pushes it to the object store and
// records the public URL. The staged file is removed on every path once it
// has been created.
func (s *VideoService) UploadVideo(ctx context.Context, v *models.Video, up Upload) (_ *models.Video, err error) {
	defer observe("video", &err)

	if up.Size > s.opts.VideoMaxBytes {
		return nil, utils.BadRequest("video exceeds upload limit")
	}
	mediaType, _, err := mime.ParseMediaType(up.ContentType)
	if err != nil {
		return nil, utils.NewError(utils.ErrBadRequest, "invalid Content-Type for video", err)
	}
	if mediaType != VideoMediaType {
		return nil, utils.BadRequest("unsupported media type, only video/mp4 is accepted")
	}

	key := storage.AssetKey(mediaType)
	size, err := s.stageAndPush(ctx, key, mediaType, up.Body)
	if err != nil {
		return nil, err
	}

	videoURL := s.store.ObjectURL(key)
	v.VideoURL = &videoURL
	v.VideoKey = key
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, utils.Internal("couldn't update video", err)
	}

	metrics.UploadBytes.WithLabelValues("video").Add(float64(size))
	s.publish(ctx, events.Event{
		Type: events.VideoUploaded, VideoID: v.ID, UserID: v.UserID,
		URL: videoURL, Size: size, At: time.Now().UTC(),
	})
	return v, nil
}

func (s *VideoService) stageAndPush(ctx context.Context, key, mediaType string, body io.Reader) (_ int64, err error) {
	path := storage.StagingPath(s.opts.AssetsRoot, key)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, utils.Internal("couldn't create staging file", err)
	}
	defer s.removeStaged(f, path)

	n, err := io.Copy(f, io.LimitReader(body, s.opts.VideoMaxBytes+1))
	if err != nil {
		return 0, utils.Internal("couldn't write video to disk", err)
	}
	if n > s.opts.VideoMaxBytes {
		return 0, utils.BadRequest("video exceeds upload limit")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, utils.Internal("couldn't rewind staging file", err)
	}

	if err := s.store.Put(ctx, key, mediaType, f); err != nil {
		if errors.Is(err, utils.ErrStorageUnavailable) {
			return 0, err
		}
		return 0, utils.NewError(utils.ErrStorageFailure, "couldn't upload video to object storage", err)
	}
	return n, nil
}

func (s *VideoService) removeStaged(f *os.File, path string) {
	_ = f.Close()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		metrics.StagingCleanupFailures.Inc()
		s.log.Warnw("couldn't remove staged video", "path", path, "error", err)
	}
}

// PresignVideo returns a time-limited GET URL for the uploaded video.
func (s *VideoService) PresignVideo(ctx context.Context, v *models.Video) (string, error) {
	if v.VideoKey == "" {
		return "", utils.NotFound("video has not been uploaded")
	}
	u, err := s.store.PresignURL(ctx, v.VideoKey, s.opts.PresignTTL)
	if err != nil {
		return "", utils.Internal("couldn't presign video url", err)
	}
	return u, nil
}

// publish sends ev in the background so a slow broker never holds up the
// response. The event outlives the request context but not PublishTimeout.
func (s *VideoService) publish(ctx context.Context, ev events.Event) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
		defer cancel()
		if err := s.events.Publish(pctx, ev); err != nil {
			s.log.Warnw("couldn't publish event", "type", ev.Type, "video_id", ev.VideoID, "error", err)
		}
	}()
}

// Drain waits for in-flight event publishes. Call it before closing the publisher.
func (s *VideoService) Drain() {
	s.inflight.Wait()
}

func observe(kind string, err *error) {
	result := "ok"
	if *err != nil {
		if utils.StatusFor(*err) >= http.StatusInternalServerError {
			result = "failed"
		} else {
			result = "rejected"
		}
	}
	metrics.Uploads.WithLabelValues(kind, result).Inc()
}
