package types

// DoneSentinel is the SSE data payload that marks the end of a stream.
const DoneSentinel = "[DONE]"

// ContentTypeEventStream is the media type of an SSE response.
const ContentTypeEventStream = "text/event-stream"

// ContentTypeTextPlain is the media type of relayed chat output.
const ContentTypeTextPlain = "text/plain; charset=utf-8"
