package notify

// PreviewLength is the maximum number of characters included in a
// fallback-notification content preview.
const PreviewLength = 50

// Preview truncates content to PreviewLength characters, appending an
// ellipsis marker when anything was cut.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "…"
}
