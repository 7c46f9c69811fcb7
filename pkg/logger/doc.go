// Package logger provides the structured logging interface used across the
// media scraper.
//
// It wraps zerolog with a small interface supporting leveled messages,
// structured fields and error attachment. Components take a Logger at
// construction; passing nil falls back to the global logger set up by
// Initialize.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "runner")
//	log.WithError(err).WithField("tag", tag).Error("Scraping tag failed")
//
// Tests use NewTestLogger to capture and assert on messages, or NewNopLogger
// to discard them.
package logger
