package telegram

import (
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/govorun-bot/govorun/pkg/asset"
)

// mediaRef identifies the downloadable media attached to one message.
type mediaRef struct {
	fileID string
	kind   asset.MediaKind
	hint   string
}

// audioHint derives a scratch-file extension hint from an audio attachment.
// Telegram voice notes are always Opus in an OGG container; uploaded audio
// files carry their original name and MIME type.
func audioHint(a *tgbotapi.Audio) string {
	if ext := strings.TrimPrefix(filepath.Ext(a.FileName), "."); ext != "" {
		return ext
	}
	switch a.MimeType {
	case "audio/ogg":
		return "oga"
	case "audio/wav", "audio/x-wav":
		return "wav"
	case "audio/flac":
		return "flac"
	case "audio/mp4", "audio/x-m4a":
		return "m4a"
	}
	return "mp3"
}

// mediaFrom extracts the media reference from msg, if it carries one of the
// supported kinds.
func mediaFrom(msg *tgbotapi.Message) (mediaRef, bool) {
	switch {
	case msg.Voice != nil:
		return mediaRef{fileID: msg.Voice.FileID, kind: asset.KindVoice, hint: "oga"}, true
	case msg.Audio != nil:
		return mediaRef{fileID: msg.Audio.FileID, kind: asset.KindAudio, hint: audioHint(msg.Audio)}, true
	case msg.VideoNote != nil:
		return mediaRef{fileID: msg.VideoNote.FileID, kind: asset.KindVideoNote, hint: "mp4"}, true
	}
	return mediaRef{}, false
}
