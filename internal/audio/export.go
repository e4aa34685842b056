package audio

import (
	"context"
	"log/slog"
	"strings"
)

// ExportMP3 transcodes a finished clip to MP3 for download. Transcoding is
// best-effort: on any failure the original untranscoded clip is delivered
// instead of failing the export.
func (s *Source) ExportMP3(ctx context.Context, clipPath string) string {
	out := strings.TrimSuffix(clipPath, ".ogg") + ".mp3"
	if out == clipPath {
		out = clipPath + ".mp3"
	}

	err := s.run.Run(ctx, "ffmpeg",
		"-i", clipPath,
		"-codec:a", "libmp3lame",
		"-qscale:a", "2",
		"-y",
		out,
	)
	if err != nil {
		slog.Warn("mp3 transcode failed, delivering original clip", "clip", clipPath, "err", err)
		return clipPath
	}
	return out
}
