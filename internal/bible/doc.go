// Package bible provides the immutable reading text and the addressing rules
// used to point annotations at words inside a chapter.
//
// Every annotation targets a ReferenceLocation: a chapter plus an inclusive
// WordRange of (verse, word) pairs. Notebooks never store ranges directly;
// they store per-word entries keyed by a flat, chapter-relative word index.
// FlatIndices converts a range into that index sequence using a ChapterView,
// the list of word counts per verse.
//
// # Range Rules
//
//   - A range is valid when verse_start <= verse_end, and word_start <= word_end
//     when both ends are in the same verse. Negative values are invalid.
//   - Flat indices are ascending, contiguous and duplicate-free.
//   - A word bound past the end of its verse, or a verse past the end of the
//     chapter, is reported as ErrOutOfRange. Nothing is clamped.
//   - A verse with zero words contributes nothing.
package bible
