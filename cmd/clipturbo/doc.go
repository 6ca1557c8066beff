// Command clipturbo is the ClipTurbo CLI. It runs the daemon, submits videos
// and inspects workflows, render jobs and history over the daemon's HTTP API.
package main
