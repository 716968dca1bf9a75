// Package profanity finds profane words and phrases in a timed transcript.
//
// Detect walks transcript tokens in order and returns raw censor intervals.
// Tokens are normalized (diacritics folded, lowercased, leetspeak decoded,
// punctuation stripped) before matching against package-level tables that are
// built once at init and never mutated. Known multi-word phrases are matched
// over consecutive raw tokens and produce a single interval spanning the
// whole phrase. Detection is pure and deterministic.
package profanity
