package telegram

import (
	"strings"

	"github.com/govorun-bot/govorun/internal/pipeline"
)

// languageNames maps ISO 639-1 tags to the names shown in the welcome
// message.
var languageNames = map[string]string{
	"uk": "Українська",
	"ru": "Російська",
	"en": "Англійська",
	"de": "Німецька",
	"fr": "Французька",
	"es": "Іспанська",
	"pl": "Польська",
	"it": "Італійська",
	"pt": "Португальська",
}

// renderWelcome builds the /start and /help reply. languages lists the
// advertised recognition languages in priority order.
func renderWelcome(languages []string) string {
	var b strings.Builder
	b.WriteString("🎤 Бот для розпізнавання голосових повідомлень\n\n")
	b.WriteString("📌 Надсилайте:\n")
	b.WriteString("• Голосові повідомлення\n")
	b.WriteString("• Аудіофайли\n")
	b.WriteString("• Відеокружки\n\n")
	b.WriteString("🌍 Підтримувані мови:\n")
	for _, tag := range languages {
		name, ok := languageNames[tag]
		if !ok {
			name = tag
		}
		b.WriteString("• " + name + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderStatus builds the /status and /ping reply.
func renderStatus() string {
	return "✅ Бот активний та працює!"
}

// renderStage builds the progress text shown while a request moves through
// the pipeline.
func renderStage(s pipeline.Stage) string {
	switch s {
	case pipeline.StageFetching:
		return "🔍 Завантаження аудіо..."
	case pipeline.StageTranscoding:
		return "🔄 Конвертація аудіо..."
	case pipeline.StageRecognizing:
		return "🎤 Розпізнавання мовлення..."
	case pipeline.StageNormalizing:
		return "🌐 Обробка тексту..."
	}
	return "⏳ Обробка..."
}

// renderOutcome builds the final text that replaces the progress message.
func renderOutcome(out pipeline.Outcome) string {
	switch out.Status {
	case pipeline.StatusSuccess:
		return "💬 " + out.Transcript
	case pipeline.StatusRecognitionFailed:
		return "😔 Не вдалося розпізнати мовлення.\n\n" +
			"Спробуйте ще раз:\n" +
			"• говоріть чіткіше та голосніше\n" +
			"• зменшіть фоновий шум\n" +
			"• запишіть довше повідомлення"
	}

	switch out.Stage {
	case pipeline.StageFetching:
		return "❌ Помилка завантаження файлу"
	case pipeline.StageTranscoding:
		return "❌ Помилка конвертації аудіо"
	}
	return "❌ Сталася помилка під час обробки"
}
