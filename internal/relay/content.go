package relay

import (
	"errors"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("payload is not valid JSON")

// chunkText turns one upstream payload into the text to emit: the payload
// itself, or in jsonMode the "content" field of the payload parsed as JSON.
// A missing field yields an empty string; non-string values are rendered
// as their JSON text.
func chunkText(data string, jsonMode bool) (string, error) {
	if !jsonMode {
		return data, nil
	}
	if !gjson.Valid(data) {
		return "", newParseError(data, errInvalidJSON)
	}

	root := gjson.Parse(data)
	if root.Type == gjson.Null {
		return "", newParseError(data, errNullPayload)
	}
	return root.Get("content").String(), nil
}
