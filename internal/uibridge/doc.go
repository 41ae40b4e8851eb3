// Package uibridge forwards graph and scheduler activity to a UI over
// socket.io. The Publisher turns change notifications into JSON-friendly
// payloads and hands them to an EmitFunc, which Dial backs with a live
// socket.io connection.
package uibridge
