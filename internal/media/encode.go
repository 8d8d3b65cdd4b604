package media

import "encoding/base64"

// EncodeBase64 returns the standard base64 encoding of data.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DataURL wraps JPEG bytes in a data URL suitable for an image_url part.
func DataURL(jpeg []byte) string {
	return "data:image/jpeg;base64," + EncodeBase64(jpeg)
}

// DataURLs converts a list of JPEG frames.
func DataURLs(frames [][]byte) []string {
	urls := make([]string, len(frames))
	for i, f := range frames {
		urls[i] = DataURL(f)
	}
	return urls
}
