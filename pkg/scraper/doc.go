// Package scraper implements the per-platform sources and the loop that
// drives one source over a tag list.
//
// Three sources are provided:
//
//   - RedditSource reads the old Reddit "top" listing of a subreddit and
//     follows every same-site post link to its detail page.
//   - NineGagSource pages the 9GAG hot tag feed until enough posts are
//     collected.
//   - ImgurSource reads the first page of the Imgur tag post API.
//
// A Scraper walks the tags through a throttle.Iterator, so one source never
// has two tags in flight, and hands each tag's records to the publisher.
// A failing tag is logged and skipped; it never affects the next tag or the
// other sources.
package scraper
