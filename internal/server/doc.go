// Package server implements the HTTP and WebSocket side of TalkNow.
//
// Meetings are created and joined over two JSON endpoints backed by the
// meeting registry. Live connections then bind themselves to a meeting's room
// with a joinRoom event, and the Hub relays newParticipant and receiveMessage
// events to every connection currently in that room.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, routing, and HTTP handlers.
package server
