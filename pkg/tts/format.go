package tts

import (
	"mime"
	"strings"
)

// Format names an audio container.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatOGG  Format = "ogg"
	FormatAAC  Format = "aac"
	FormatFLAC Format = "flac"
	FormatPCM  Format = "pcm"
)

var formatMIME = map[Format]string{
	FormatMP3:  "audio/mpeg",
	FormatWAV:  "audio/wav",
	FormatOGG:  "audio/ogg",
	FormatAAC:  "audio/aac",
	FormatFLAC: "audio/flac",
	FormatPCM:  "audio/pcm",
}

// ParseFormat recognizes a format tag such as "mp3" or "WAV".
func ParseFormat(tag string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(tag)))
	switch f {
	case "mpeg":
		return FormatMP3, true
	case "wave":
		return FormatWAV, true
	case "opus":
		return FormatOGG, true
	}
	_, ok := formatMIME[f]
	return f, ok
}

// FormatFromContentType maps a response Content-Type onto a Format.
func FormatFromContentType(contentType string) (Format, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return FormatMP3, true
	case "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV, true
	case "audio/ogg", "audio/opus":
		return FormatOGG, true
	case "audio/aac":
		return FormatAAC, true
	case "audio/flac":
		return FormatFLAC, true
	case "audio/pcm", "audio/l16":
		return FormatPCM, true
	}
	return "", false
}

// MIME returns the media type for the format.
func (f Format) MIME() string {
	if m, ok := formatMIME[f]; ok {
		return m
	}
	return "application/octet-stream"
}

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	if f == "" {
		return ".bin"
	}
	return "." + string(f)
}
