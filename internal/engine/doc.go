// Package engine hosts the room: the frame loop, the action inbox and one
// System per puzzle box.
//
// The engine does not broadcast state directly. Systems append events to the
// EventLog; transports read the log and the published RoomView.
package engine
