package mediatype

import (
	"net/url"
	"path"
	"strings"
)

const (
	YouTube = "youtube"
	Vimeo   = "vimeo"
	HLS     = "hls"
	DASH    = "dash"
	Video   = "video"
	Audio   = "audio"
	Unknown = "unknown"
)

var extensions = map[string]string{
	".m3u8": HLS,
	".mpd":  DASH,
	".mp4":  Video,
	".webm": Video,
	".mkv":  Video,
	".mov":  Video,
	".ogv":  Video,
	".mp3":  Audio,
	".ogg":  Audio,
	".wav":  Audio,
	".flac": Audio,
	".m4a":  Audio,
	".aac":  Audio,
}

// Detect guesses the media type of rawURL from its host and path extension.
func Detect(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return Unknown
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	switch host {
	case "youtube.com", "youtu.be", "youtube-nocookie.com", "music.youtube.com":
		return YouTube
	case "vimeo.com", "player.vimeo.com":
		return Vimeo
	}

	if t, ok := extensions[strings.ToLower(path.Ext(u.Path))]; ok {
		return t
	}

	return Unknown
}
