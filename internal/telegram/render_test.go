package telegram

import (
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/govorun-bot/govorun/internal/pipeline"
	"github.com/govorun-bot/govorun/pkg/asset"
)

func TestRenderWelcomeListsLanguages(t *testing.T) {
	t.Parallel()

	got := renderWelcome([]string{"uk", "ru", "en"})
	for _, want := range []string{"Українська", "Російська", "Англійська", "Голосові повідомлення", "Відеокружки"} {
		if !strings.Contains(got, want) {
			t.Errorf("welcome text missing %q:\n%s", want, got)
		}
	}
}

func TestRenderWelcomeUnknownTagFallsBack(t *testing.T) {
	t.Parallel()

	got := renderWelcome([]string{"uk", "xx"})
	if !strings.Contains(got, "• xx") {
		t.Errorf("unknown tag not listed as is:\n%s", got)
	}
}

func TestRenderStage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stage pipeline.Stage
		want  string
	}{
		{pipeline.StageFetching, "Завантаження"},
		{pipeline.StageTranscoding, "Конвертація"},
		{pipeline.StageRecognizing, "Розпізнавання"},
		{pipeline.StageNormalizing, "Обробка тексту"},
	}
	for _, tc := range tests {
		if got := renderStage(tc.stage); !strings.Contains(got, tc.want) {
			t.Errorf("renderStage(%s) = %q, want substring %q", tc.stage, got, tc.want)
		}
	}
}

func TestRenderOutcomeSuccess(t *testing.T) {
	t.Parallel()

	got := renderOutcome(pipeline.Outcome{
		Status:     pipeline.StatusSuccess,
		Transcript: "привіт, як справи",
	})
	if !strings.Contains(got, "привіт, як справи") {
		t.Errorf("result text missing transcript: %q", got)
	}
}

func TestRenderOutcomeRecognitionFailedHasHints(t *testing.T) {
	t.Parallel()

	got := renderOutcome(pipeline.Outcome{Status: pipeline.StatusRecognitionFailed})
	if !strings.Contains(got, "Не вдалося розпізнати") {
		t.Errorf("failure text = %q", got)
	}
	if !strings.Contains(got, "чіткіше") || !strings.Contains(got, "шум") {
		t.Errorf("failure text lacks actionable hints: %q", got)
	}
}

func TestRenderOutcomeStageFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stage pipeline.Stage
		want  string
	}{
		{pipeline.StageFetching, "завантаження файлу"},
		{pipeline.StageTranscoding, "конвертації"},
		{pipeline.StageRecognizing, "під час обробки"},
	}
	for _, tc := range tests {
		out := pipeline.Outcome{
			Status: pipeline.StatusStageFailed,
			Stage:  tc.stage,
			Err:    errors.New("boom"),
		}
		if got := renderOutcome(out); !strings.Contains(got, tc.want) {
			t.Errorf("renderOutcome(stage=%s) = %q, want substring %q", tc.stage, got, tc.want)
		}
	}
}

func TestMediaFrom(t *testing.T) {
	t.Parallel()

	voice := &tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "v1"}}
	if ref, ok := mediaFrom(voice); !ok || ref.kind != asset.KindVoice || ref.hint != "oga" || ref.fileID != "v1" {
		t.Errorf("voice ref = %+v, ok = %v", ref, ok)
	}

	audio := &tgbotapi.Message{Audio: &tgbotapi.Audio{FileID: "a1", FileName: "song.flac"}}
	if ref, ok := mediaFrom(audio); !ok || ref.kind != asset.KindAudio || ref.hint != "flac" {
		t.Errorf("audio ref = %+v, ok = %v", ref, ok)
	}

	note := &tgbotapi.Message{VideoNote: &tgbotapi.VideoNote{FileID: "n1"}}
	if ref, ok := mediaFrom(note); !ok || ref.kind != asset.KindVideoNote || ref.hint != "mp4" {
		t.Errorf("video note ref = %+v, ok = %v", ref, ok)
	}

	if _, ok := mediaFrom(&tgbotapi.Message{Text: "hello"}); ok {
		t.Error("plain text message produced a media ref")
	}
}

func TestAudioHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		audio tgbotapi.Audio
		want  string
	}{
		{tgbotapi.Audio{FileName: "voice.ogg"}, "ogg"},
		{tgbotapi.Audio{MimeType: "audio/ogg"}, "oga"},
		{tgbotapi.Audio{MimeType: "audio/x-wav"}, "wav"},
		{tgbotapi.Audio{MimeType: "audio/x-m4a"}, "m4a"},
		{tgbotapi.Audio{}, "mp3"},
	}
	for _, tc := range tests {
		if got := audioHint(&tc.audio); got != tc.want {
			t.Errorf("audioHint(%+v) = %q, want %q", tc.audio, got, tc.want)
		}
	}
}
