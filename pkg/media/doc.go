// Package media defines the unified record every source normalizes its posts
// into, and the file-extension classifier used to decide whether a media URL
// is an image, a video, or something the pipeline does not carry.
//
// A Record is a closed sum type: Kind selects the variant and only the
// fields of that variant are meaningful. Image and Video records carry Src,
// Text records carry Text. Build records with NewImage, NewVideo and NewText
// rather than by hand so the variant invariants hold.
package media
