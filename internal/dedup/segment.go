package dedup

import "strings"

// blockSeparator is the blank line that delimits blocks in rendered text.
const blockSeparator = "\n\n"

// Segment splits text on blank lines into trimmed, non-empty blocks,
// keeping their order.
func Segment(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, blockSeparator)
	blocks := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}
