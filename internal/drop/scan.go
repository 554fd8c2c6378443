package drop

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxTextChars is the rune limit for text drop content read from disk.
const MaxTextChars = 2000

// ErrorReadingContent replaces the content of a file that could not be read.
const ErrorReadingContent = "[Error reading file]"

// Kind classifies a local file by extension.
type Kind string

const (
	KindText    Kind = "text"
	KindAudio   Kind = "audio"
	KindImage   Kind = "image"
	KindUnknown Kind = "file"
)

var kindsByExt = map[string]Kind{
	".md": KindText, ".txt": KindText, ".json": KindText, ".yaml": KindText,
	".yml": KindText, ".csv": KindText, ".log": KindText, ".html": KindText,
	".xml": KindText,

	".m4a": KindAudio, ".mp3": KindAudio, ".wav": KindAudio, ".ogg": KindAudio,
	".opus": KindAudio, ".aac": KindAudio, ".flac": KindAudio,

	".png": KindImage, ".jpg": KindImage, ".jpeg": KindImage, ".gif": KindImage,
	".webp": KindImage, ".heic": KindImage,
}

// Classify returns the Kind for a filename.
func Classify(name string) Kind {
	if k, ok := kindsByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return k
	}
	return KindUnknown
}

// Scanner reads drops from local directories. The zero value is usable.
type Scanner struct {
	Logger   *slog.Logger
	Now      func() time.Time
	ReadFile func(name string) ([]byte, error)
}

// NewScanner creates a Scanner logging to logger.
func NewScanner(logger *slog.Logger) *Scanner {
	return &Scanner{Logger: logger}
}

// Scan lists every configured directory and returns at most maxDrops drops,
// newest first. Dotfiles, _-prefixed files, non-regular entries and files
// modified more than maxAge ago are skipped (maxAge <= 0 disables the age
// filter). Unreadable directories are logged and skipped.
func (s *Scanner) Scan(paths []string, maxAge time.Duration, maxDrops int) []Drop {
	if maxDrops <= 0 {
		return nil
	}
	now := s.now()

	var drops []Drop
	for _, dir := range paths {
		dir = filepath.Clean(dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger().Warn("local drop directory unreadable", "path", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				continue
			}
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if maxAge > 0 && now.Sub(info.ModTime()) > maxAge {
				continue
			}

			kind := Classify(name)
			drops = append(drops, Drop{
				ID:        LocalID(dir, name),
				Source:    "local",
				Content:   s.content(filepath.Join(dir, name), name, kind),
				Timestamp: info.ModTime().UTC().Format(time.RFC3339Nano),
				Tags:      []string{"local", string(kind)},
			})
		}
	}

	SortNewestFirst(drops)
	if len(drops) > maxDrops {
		drops = drops[:maxDrops]
	}
	return drops
}

// LocalID identifies a local file by its full path, so same-named folders
// in different places never collide.
func LocalID(dir, name string) string {
	return "local:" + filepath.Join(filepath.Clean(dir), name)
}

func (s *Scanner) content(path, name string, kind Kind) string {
	switch kind {
	case KindText:
		data, err := s.readFile(path)
		if err != nil {
			s.logger().Warn("local drop unreadable", "path", path, "error", err)
			return ErrorReadingContent
		}
		return Truncate(string(data), MaxTextChars)
	case KindAudio:
		return "[Voice: " + name + "]"
	case KindImage:
		return "[Image: " + name + "]"
	default:
		return ""
	}
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scanner) readFile(path string) ([]byte, error) {
	if s.ReadFile != nil {
		return s.ReadFile(path)
	}
	return ReadPrefix(path, MaxTextChars)
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
