package media

import (
	"net/url"
	"path"
	"strings"
)

// Class is the outcome of classifying a file extension
type Class string

const (
	ClassImage       Class = "image"
	ClassVideo       Class = "video"
	ClassUnsupported Class = "unsupported"
)

var imageExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "webp": {}, "bmp": {},
	"avif": {}, "tif": {}, "tiff": {}, "heic": {}, "heif": {}, "svg": {},
}

var videoExtensions = map[string]struct{}{
	"mp4": {}, "webm": {}, "mov": {}, "m4v": {}, "mkv": {}, "avi": {},
	"ogv": {}, "gifv": {}, "3gp": {}, "mpeg": {}, "mpg": {},
}

// Classify maps an extension (with or without the leading dot, any case) to
// an image, video or unsupported class.
func Classify(ext string) Class {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if _, ok := imageExtensions[ext]; ok {
		return ClassImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return ClassVideo
	}
	return ClassUnsupported
}

// ExtensionOf returns the lower-cased extension of the last path segment of
// rawURL, without the dot. Query strings and fragments are ignored. It
// returns "" when the segment has no extension or the URL does not parse.
func ExtensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(path.Base(u.Path))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ClassifyURL is Classify(ExtensionOf(rawURL))
func ClassifyURL(rawURL string) Class {
	return Classify(ExtensionOf(rawURL))
}
