// Command bleep removes profanity from the audio track of videos.
//
// "bleep process" censors one file in the foreground. "bleep daemon" runs
// the job queue, watch folder and HTTP API; "bleep submit" and "bleep jobs"
// talk to it, falling back to the job database when it is not running.
package main
