package media

import (
	"fmt"
	"strings"
)

// Kind discriminates the Record variants
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindText  Kind = "text"
)

// Base holds the fields shared by every variant
type Base struct {
	ID          string
	Title       string
	Tags        []string
	Description string
}

// Record is one normalized post
type Record struct {
	Kind Kind
	Base

	// Src is set for KindImage and KindVideo
	Src string
	// Text is set for KindText
	Text string
}

// NewImage builds an image record
func NewImage(base Base, src string) Record {
	return Record{Kind: KindImage, Base: base, Src: src}
}

// NewVideo builds a video record
func NewVideo(base Base, src string) Record {
	return Record{Kind: KindVideo, Base: base, Src: src}
}

// NewText builds a text record. Text records never carry a description; the
// body is the text itself.
func NewText(base Base, text string) Record {
	base.Description = ""
	return Record{Kind: KindText, Base: base, Text: text}
}

// NewMedia builds an image or video record from a classification result.
// ok is false for ClassUnsupported.
func NewMedia(class Class, base Base, src string) (Record, bool) {
	switch class {
	case ClassImage:
		return NewImage(base, src), true
	case ClassVideo:
		return NewVideo(base, src), true
	case ClassUnsupported:
		return Record{}, false
	default:
		return Record{}, false
	}
}

// Validate checks the variant invariants
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("media record has no id")
	}
	switch r.Kind {
	case KindImage, KindVideo:
		if r.Src == "" {
			return fmt.Errorf("%s record %s has no src", r.Kind, r.ID)
		}
	case KindText:
		if r.Text == "" {
			return fmt.Errorf("text record %s has no text", r.ID)
		}
	default:
		return fmt.Errorf("media record %s has unknown kind %q", r.ID, r.Kind)
	}
	return nil
}

// Fields flattens the record into alternating field/value pairs, the shape
// appended to the output log. Every field of the variant is present.
func (r Record) Fields() []string {
	fields := []string{
		"type", string(r.Kind),
		"id", r.ID,
		"title", r.Title,
		"tags", strings.Join(r.Tags, ","),
		"description", r.Description,
	}

	switch r.Kind {
	case KindImage, KindVideo:
		fields = append(fields, "src", r.Src)
	case KindText:
		fields = append(fields, "text", r.Text)
	}

	return fields
}
