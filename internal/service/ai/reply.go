package ai

import "context"

// ErrorPrefix starts every assistant turn produced from a failed completion.
const ErrorPrefix = "⚠️ AI Error:"

// ErrorReply renders a completion failure as displayable chat text.
func ErrorReply(err error) string {
	return ErrorPrefix + "\n" + err.Error()
}

// Reply always yields a displayable string: the model's text, or the
// rendered error.
func Reply(ctx context.Context, c Completer, userText string) string {
	text, err := c.Complete(ctx, userText)
	if err != nil {
		return ErrorReply(err)
	}
	return text
}
