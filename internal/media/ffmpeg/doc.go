// Package ffmpeg runs ffmpeg subprocesses and interprets their diagnostics.
//
// ExecRunner starts a process, streams stdin and stdout, drains stderr
// concurrently, reports time= progress markers, and fails an invocation when
// the exit code is non-zero or the diagnostics contain a fatal pattern. The
// Runner interface lets the pipeline and audio editor substitute fakes in
// tests.
package ffmpeg
