package transcript

// EstimateTokens approximates the token count of a piece of text.
// Claude tokenizes roughly 3.5 characters per token for English text.
func EstimateTokens(content string) int {
	return len(content) * 10 / 35
}

// SumTokens estimates the total token count across messages.
func SumTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}
